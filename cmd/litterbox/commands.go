package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/HosicoLabs/Litterbox/internal/domain"
	"github.com/HosicoLabs/Litterbox/internal/session"
)

var errAborted = errors.New("aborted")

// pipeline is what the commands need from app.Runner.
type pipeline interface {
	RefreshPrices(ctx context.Context)
	Session() *session.Session
}

type cmdOptions struct {
	selection string
	yes       bool
}

type command struct {
	parse func(args []string) (cmdOptions, error)
	run   func(ctx context.Context, p pipeline, opts cmdOptions, w io.Writer) error
}

var commands = map[string]command{
	"scan":    {parse: parseNone("scan"), run: runScan},
	"preview": {parse: parseSelect("preview", false), run: runPreview},
	"convert": {parse: parseSelect("convert", true), run: runConvert},
}

// stdin is replaced in tests.
var stdin io.Reader = os.Stdin

func parseNone(name string) func([]string) (cmdOptions, error) {
	return func(args []string) (cmdOptions, error) {
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		return cmdOptions{}, fs.Parse(args)
	}
}

func parseSelect(name string, withYes bool) func([]string) (cmdOptions, error) {
	return func(args []string) (cmdOptions, error) {
		var opts cmdOptions
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.StringVar(&opts.selection, "select", "", `"all" or comma-separated mint addresses`)
		if withYes {
			fs.BoolVar(&opts.yes, "yes", false, "Do not ask for confirmation")
		}
		if err := fs.Parse(args); err != nil {
			return opts, err
		}
		if strings.TrimSpace(opts.selection) == "" {
			return opts, fmt.Errorf("%s: -select is required", name)
		}
		return opts, nil
	}
}

// scanAll refreshes prices, scans and enriches every page.
func scanAll(ctx context.Context, p pipeline) (*session.Session, error) {
	p.RefreshPrices(ctx)
	sess := p.Session()
	if err := sess.Scan(ctx); err != nil {
		return nil, err
	}
	pages := sess.View().Pages
	for i := 1; i < pages; i++ {
		sess.SetPage(i)
		if err := sess.EnrichPage(ctx); err != nil && !errors.Is(err, session.ErrStale) {
			return nil, err
		}
	}
	sess.SetPage(0)
	return sess, nil
}

func runScan(ctx context.Context, p pipeline, _ cmdOptions, w io.Writer) error {
	sess, err := scanAll(ctx, p)
	if err != nil {
		return err
	}
	v := sess.View()
	fmt.Fprintf(w, "Wallet:  %s\n", sess.Owner())
	if v.NativeBalance != nil {
		fmt.Fprintf(w, "Balance: %.6f SOL\n", *v.NativeBalance)
	}
	fmt.Fprintf(w, "Prices:  SOL $%.4f, HOSICO $%.8f\n\n", v.NativePrice, v.TargetPrice)

	records := sess.Records()
	if len(records) == 0 {
		fmt.Fprintln(w, session.EmptyMessage)
		return nil
	}
	fmt.Fprintln(w, recordsTable(records))
	fmt.Fprintf(w, "%d closeable accounts\n", len(records))
	return nil
}

func runPreview(ctx context.Context, p pipeline, opts cmdOptions, w io.Writer) error {
	sess, err := scanAll(ctx, p)
	if err != nil {
		return err
	}
	if err := applySelection(sess, opts.selection); err != nil {
		return err
	}
	printPreview(w, sess)
	return nil
}

func runConvert(ctx context.Context, p pipeline, opts cmdOptions, w io.Writer) error {
	sess, err := scanAll(ctx, p)
	if err != nil {
		return err
	}
	if err := applySelection(sess, opts.selection); err != nil {
		return err
	}
	printPreview(w, sess)

	if !opts.yes && !confirm(w, "Sign and send this transaction? [y/N] ") {
		return errAborted
	}

	out, err := sess.Convert(ctx)
	fmt.Fprintln(w, sess.View().Status)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Signature: %s\n", out.Signature)
	return nil
}

func applySelection(sess *session.Session, raw string) error {
	if strings.EqualFold(strings.TrimSpace(raw), "all") {
		sess.SelectMints(mintsOf(sess.Records()))
	} else {
		var mints []string
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				mints = append(mints, m)
			}
		}
		sess.SelectMints(mints)
	}
	if sess.Selection().Len() == 0 {
		return session.ErrNothingSelected
	}
	return nil
}

func printPreview(w io.Writer, sess *session.Session) {
	pv := sess.Preview()
	fmt.Fprintln(w, recordsTable(sess.Selection().Select(sess.Records())))
	fmt.Fprintf(w, "Selected accounts: %d\n", pv.SelectedCount)
	fmt.Fprintf(w, "Tokens value:      $%s\n", pv.AggregateUSD.StringFixed(4))
	fmt.Fprintf(w, "Rent reclaimed:    %s SOL ($%s)\n", pv.ReclaimedNative.StringFixed(4), pv.ReclaimedUSD.StringFixed(2))
	fmt.Fprintf(w, "Total value:       $%s\n", pv.TotalUSD.StringFixed(2))
	fmt.Fprintf(w, "Fee:               %s $HOSICO\n", pv.FeeTarget.StringFixed(2))
	fmt.Fprintf(w, "You receive:       ~%s $HOSICO\n", pv.NetTarget.StringFixed(2))
}

func recordsTable(records []domain.TokenAccountRecord) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MINT", "SYMBOL", "NAME", "ACCOUNT", "PRICE USD")
	for _, r := range records {
		t.Row(r.MintKey(), r.Symbol, r.Name, r.Address.String(), fmt.Sprintf("%.8f", r.PriceUSD))
	}
	return t.String()
}

func confirm(w io.Writer, prompt string) bool {
	fmt.Fprint(w, prompt)
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func mintsOf(records []domain.TokenAccountRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.MintKey())
	}
	return out
}
