package common

import (
	"fmt"
	"strings"

	"xrpl-iou-issuer-go/internal/models"
)

const (
	DefaultWidth = 80
	WideWidth    = 100
)

func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints title between two rules of '='
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

// BoxPrefix returns the box-drawing prefix for a list item
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "├  "
}

// BoxDetailPrefix returns the prefix for detail lines under a list item
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

func PrintReceipt(to, value string, receipt models.Receipt) {
	fmt.Printf("✅ Minted %s to %s\n", value, to)
	fmt.Printf("   hash:   %s\n", receipt.Hash)
	fmt.Printf("   ledger: %d\n", receipt.LedgerIndex)
}

func PrintBatchResult(result models.BatchResult) {
	fmt.Printf("Batch %s: %d ok, %d failed\n", strings.ToUpper(result.Status), result.OKCount, result.ErrCount)
	for i, r := range result.Results {
		last := i == len(result.Results)-1
		mark := "✅"
		if !r.OK {
			mark = "❌"
		}
		fmt.Printf("%s%s #%d %s -> %s\n", BoxPrefix(last), mark, r.Index, r.Amount, r.To)
		if r.OK {
			fmt.Printf("%s   hash %s (ledger %d)\n", BoxDetailPrefix(last), r.Hash, r.LedgerIndex)
		} else {
			fmt.Printf("%s   %s\n", BoxDetailPrefix(last), r.Error)
		}
	}
}

func PrintMintRecords(records []models.MintRecord) {
	if len(records) == 0 {
		fmt.Println("No mints recorded")
		return
	}
	for i, rec := range records {
		last := i == len(records)-1
		fmt.Printf("%s%-9s %s %s -> %s\n", BoxPrefix(last), rec.Status, rec.Amount.String(), rec.Currency, rec.Recipient)
		detail := fmt.Sprintf("hash %s", rec.TxHash)
		if rec.LedgerIndex > 0 {
			detail += fmt.Sprintf(" ledger %d", rec.LedgerIndex)
		}
		if rec.ResultCode != "" {
			detail += " " + rec.ResultCode
		}
		fmt.Printf("%s   %s  %s\n", BoxDetailPrefix(last), rec.CreatedAt.Format("2006-01-02 15:04:05"), detail)
	}
}

func PrintTotals(totals []models.IssuedTotal) {
	for i, total := range totals {
		fmt.Printf("%s%s %s (%d mints) -> %s\n", BoxPrefix(i == len(totals)-1), total.Total.String(), total.Currency, total.Count, total.Recipient)
	}
}
