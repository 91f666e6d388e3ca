// internal/ui/view.go
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HosicoLabs/Litterbox/internal/logger"
	"github.com/HosicoLabs/Litterbox/internal/session"
	"github.com/HosicoLabs/Litterbox/internal/ui/component"
)

// View renders the header, the token page, the preview and the status line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.sess.View()
	s := m.styles

	var b strings.Builder
	b.WriteString(s.Title.Render("Litterbox"))
	b.WriteString(s.Muted.Render("  " + logger.ShortenAddress(m.sess.Owner().String())))
	b.WriteString("\n")
	b.WriteString(m.header(v))
	b.WriteString("\n\n")

	switch {
	case v.Loading && v.Total == 0:
		b.WriteString(m.spinner.View() + " Scanning token accounts...")
	case v.ScanErr != nil:
		b.WriteString(s.Error.Render(v.ScanErr.Error()))
	case v.EmptyMessage != "":
		b.WriteString(s.Muted.Render(v.EmptyMessage))
	default:
		b.WriteString(m.table(v))
		if v.Pages > 1 {
			pager := m.pager
			pager.TotalPages = v.Pages
			pager.Page = v.Page
			b.WriteString("\n" + lipgloss.PlaceHorizontal(40, lipgloss.Center, pager.View()))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.preview(v))

	if v.Status != "" {
		line := v.Status
		if v.InFlight {
			line = m.spinner.View() + " " + line
		}
		b.WriteString("\n" + s.Status.Render(line))
	}
	if m.lastErr != nil && v.Status == "" {
		b.WriteString("\n" + s.Error.Render(m.lastErr.Error()))
	}

	if m.showLogs {
		b.WriteString("\n" + m.logs.View())
	}

	b.WriteString("\n\n" + m.help.View())
	return b.String()
}

func (m Model) header(v session.View) string {
	s := m.styles
	balance := "n/a"
	if v.NativeBalance != nil {
		balance = fmt.Sprintf("%.6f SOL", *v.NativeBalance)
	}
	return strings.Join([]string{
		s.Label.Render("Balance ") + s.Value.Render(balance),
		s.Label.Render("SOL ") + s.Value.Render(formatUSD(v.NativePrice)),
		s.Label.Render("HOSICO ") + s.Value.Render(formatUSD(v.TargetPrice)),
	}, s.Muted.Render("  │  "))
}

func (m Model) table(v session.View) string {
	t := component.NewTable(
		component.TableColumn{Header: " ", Width: 3, Align: lipgloss.Left},
		component.TableColumn{Header: "Token", Width: 12, Align: lipgloss.Left},
		component.TableColumn{Header: "Name", Width: 20, Align: lipgloss.Left},
		component.TableColumn{Header: "Account", Width: 12, Align: lipgloss.Left},
		component.TableColumn{Header: "Price", Width: 12, Align: lipgloss.Right},
	)
	for _, r := range v.PageRecords {
		selected := v.Selection.Has(r.MintKey())
		mark := "[ ]"
		if selected {
			mark = "[x]"
		}
		symbol, name := r.Symbol, r.Name
		if !r.Enriched {
			symbol, name = logger.ShortenAddress(r.MintKey()), "…"
		}
		t.AddRow(selected, mark, symbol, name, logger.ShortenAddress(r.Address.String()), formatUSD(r.PriceUSD))
	}
	t.SetCursor(m.cursor)
	return t.View()
}

func (m Model) preview(v session.View) string {
	s := m.styles
	p := v.Preview
	if p.Empty() {
		return s.Box.Render(s.Muted.Render("Select tokens to preview the conversion"))
	}
	lines := []string{
		fmt.Sprintf("%s %s", s.Label.Render("Selected:"), s.Value.Render(fmt.Sprintf("%d of %d", p.SelectedCount, v.Total))),
		fmt.Sprintf("%s %s", s.Label.Render("Tokens value:"), s.Value.Render("$"+p.AggregateUSD.StringFixed(4))),
		fmt.Sprintf("%s %s", s.Label.Render("Rent reclaimed:"), s.Value.Render(p.ReclaimedNative.StringFixed(4)+" SOL ($"+p.ReclaimedUSD.StringFixed(2)+")")),
		fmt.Sprintf("%s %s", s.Label.Render("Total:"), s.Value.Render("$"+p.TotalUSD.StringFixed(2))),
		fmt.Sprintf("%s %s", s.Label.Render("You receive:"), s.Success.Render("~"+p.NetTarget.StringFixed(2)+" $HOSICO")),
	}
	return s.Box.Render(strings.Join(lines, "\n"))
}

func formatUSD(v float64) string {
	switch {
	case v == 0:
		return "-"
	case v < 0.01:
		return fmt.Sprintf("$%.8f", v)
	default:
		return fmt.Sprintf("$%.4f", v)
	}
}
