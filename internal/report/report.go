// Package report renders the product collection as a PDF table, mirroring
// the on-screen listing: position, ASIN, title, price, and whether an image
// URL was extracted, plus the selection total.
package report

import (
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/cartledger/cartledger/internal/product"
)

const maxTitleChars = 70

// WritePDF writes records to outPath. When selection is non-empty the
// summary line totals only the selected records, otherwise all of them.
func WritePDF(records []product.Record, selection []string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.AddPage()
	pdf.CellFormat(0, 8, "Cart ledger", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	writeRow(pdf, "#", "ASIN", "Title", "Price", "Img")
	pdf.SetFont("Helvetica", "", 9)

	for _, r := range records {
		pos := ""
		if r.Position != nil {
			pos = strconv.Itoa(*r.Position)
		}
		img := ""
		if r.Image != "" {
			img = "yes"
		}
		title := r.Title
		if r.Degraded {
			title += " (asin only)"
		}
		if runes := []rune(title); len(runes) > maxTitleChars {
			title = string(runes[:maxTitleChars-3]) + "..."
		}
		writeRow(pdf, pos, r.ASIN, title, fmt.Sprintf("%.2f", r.Price), img)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	if len(selection) > 0 {
		total := product.SelectionTotal(records, selection)
		pdf.CellFormat(0, 6, fmt.Sprintf("Selected: %d items, total %.2f", len(selection), total), "", 1, "L", false, 0, "")
	} else {
		var total float64
		for _, r := range records {
			total += r.Price
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("All items: %d, total %.2f", len(records), total), "", 1, "L", false, 0, "")
	}

	return pdf.OutputFileAndClose(outPath)
}

func writeRow(pdf *gofpdf.Fpdf, pos, asin, title, price, img string) {
	pdf.CellFormat(10, 6, pos, "1", 0, "R", false, 0, "")
	pdf.CellFormat(28, 6, asin, "1", 0, "L", false, 0, "")
	pdf.CellFormat(112, 6, title, "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 6, price, "1", 0, "R", false, 0, "")
	pdf.CellFormat(12, 6, img, "1", 1, "C", false, 0, "")
}
