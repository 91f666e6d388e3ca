package status

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fixed status lines of the conversion flow.
const (
	SelectTokens   = "Please select tokens"
	Preparing      = "Preparing batch transaction..."
	NoValidAccount = "No valid token accounts to close"
	Cancelled      = "Transaction cancelled by user"
)

func CreatingClose(n int) string {
	return fmt.Sprintf("Creating close instructions for %d tokens...", n)
}

func CreatingSwap(native decimal.Decimal, nativeSymbol, targetSymbol string) string {
	return fmt.Sprintf("Creating swap instruction for %s %s to $%s...", native.StringFixed(3), nativeSymbol, targetSymbol)
}

func Executing(n int, withSwap bool) string {
	if withSwap {
		return fmt.Sprintf("Executing batch transaction: %d close + swap instructions...", n)
	}
	return fmt.Sprintf("Executing batch transaction: %d close instructions (swap unavailable)...", n)
}

func Swapped(n int, native decimal.Decimal, nativeSymbol, targetSymbol string) string {
	return fmt.Sprintf("Successfully closed %d accounts and swapped %s %s to $%s!", n, native.StringFixed(3), nativeSymbol, targetSymbol)
}

func Recovered(n int, native decimal.Decimal, nativeSymbol string) string {
	return fmt.Sprintf("Successfully closed %d accounts! Recovered ~%s %s", n, native.StringFixed(3), nativeSymbol)
}

func Failed(msg string) string {
	return fmt.Sprintf("Batch transaction failed: %s. Please try again.", msg)
}
