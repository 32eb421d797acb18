package common

import (
	"fmt"
	"strings"

	"piron-pools-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultWidth = 80
	WideWidth    = 100
)

func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a title between two rules.
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the tree prefix for a list item.
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// ShortHash abbreviates a hash or address as 0x1234…abcd.
func ShortHash(h string) string {
	if h == "" {
		return "none"
	}
	if len(h) <= 14 {
		return h
	}
	return h[:6] + "…" + h[len(h)-4:]
}

// FormatAmount renders an amount with two decimal places and its asset symbol.
func FormatAmount(amount decimal.Decimal, symbol string) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(2), symbol)
}

// PrintPool prints one pool as a box with its computed indicators.
func PrintPool(p models.PoolWithComputed) {
	fmt.Printf("\n┌─ %s [%s]\n", p.Name, p.Status)
	fmt.Printf("│  ID:        %s\n", p.Id)
	fmt.Printf("│  Address:   %s\n", ShortHash(p.PoolAddress))
	fmt.Printf("│  Raised:    %s of %s (%.2f%%)\n",
		FormatAmount(p.TotalRaised, p.AssetSymbol), FormatAmount(p.TargetRaise, p.AssetSymbol), p.ProgressPercentage)
	fmt.Printf("│  Investors: %d\n", p.TotalInvestors)
	fmt.Printf("│  APY:       %.2f%%\n", p.ExpectedAPY)
	synced := "never"
	if p.LastSyncedAt != nil {
		synced = p.LastSyncedAt.Format("2006-01-02 15:04:05")
	}
	fmt.Printf("%sSynced:    %s\n", BoxPrefix(true), synced)
}
