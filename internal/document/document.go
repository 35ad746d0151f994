// Package document renders invoice drafts to PDF and checks downloaded
// invoice PDFs before they are written to disk.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"rsc.io/pdf"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/invoice"
)

// ErrNotPDF is returned by Inspect for payloads that are not PDF documents
var ErrNotPDF = errors.New("response is not a PDF document")

// Parties identifies who issues and who receives the invoice. Either may be
// nil.
type Parties struct {
	Issuer *api.User
	Client *api.Customer
}

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

var columnWidths = []float64{90, 20, 35, 35}

// RenderDraft writes a PDF preview of d to w. Amounts are rounded to
// currency precision; the draft itself is not modified.
func RenderDraft(w io.Writer, d *invoice.Draft, parties Parties) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetTitle("Invoice draft", true)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")
	currency := ""
	if parties.Issuer != nil && parties.Issuer.Currency != "" {
		currency = parties.Issuer.Currency + " "
	}
	money := func(v string) string { return currency + v }

	doc.SetFont("Arial", "B", 18)
	title := "INVOICE"
	if d.Status == api.StatusDraft {
		title = "INVOICE (DRAFT)"
	}
	doc.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	doc.Ln(2)

	doc.SetFont("Arial", "", 10)
	if u := parties.Issuer; u != nil {
		from := u.BusinessName
		if from == "" {
			from = u.FullName()
		}
		writeLines(doc, tr, "From", from, u.BusinessAddress, u.Email, u.Phone)
	}

	if c := parties.Client; c != nil {
		writeLines(doc, tr, "Bill to", c.Name, c.CompanyName, c.Address, c.Email)
	} else if d.Client != "" {
		writeLines(doc, tr, "Bill to", d.Client)
	}

	doc.SetFont("Arial", "", 10)
	doc.CellFormat(0, lineHeight, tr("Issue date: "+d.IssueDate), "", 1, "L", false, 0, "")
	doc.CellFormat(0, lineHeight, tr("Due date: "+d.DueDate), "", 1, "L", false, 0, "")
	doc.Ln(4)

	headers := []string{"Description", "Qty", "Unit price", "Amount"}
	doc.SetFont("Arial", "B", 10)
	doc.SetFillColor(235, 235, 235)
	for i, h := range headers {
		align := "R"
		if i == 0 {
			align = "L"
		}
		doc.CellFormat(columnWidths[i], 8, h, "B", 0, align, true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Arial", "", 10)
	for _, it := range d.Items {
		cells := []string{
			tr(it.Description),
			it.Quantity.String(),
			money(invoice.Format(invoice.Round(it.UnitPrice))),
			money(invoice.Format(invoice.Round(it.Amount()))),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			doc.CellFormat(columnWidths[i], 7, c, "", 0, align, false, 0, "")
		}
		doc.Ln(-1)
	}
	doc.Ln(2)

	totals := d.Totals().Rounded()
	labelWidth := columnWidths[0] + columnWidths[1] + columnWidths[2]
	rows := []struct {
		label string
		value string
		bold  bool
	}{
		{"Subtotal", money(invoice.Format(totals.Subtotal)), false},
		{fmt.Sprintf("Tax (%s%%)", d.TaxRatePercent.String()), money(invoice.Format(totals.TaxAmount)), false},
		{"Total", money(invoice.Format(totals.Total)), true},
	}
	for _, r := range rows {
		style := ""
		if r.bold {
			style = "B"
		}
		doc.SetFont("Arial", style, 10)
		doc.CellFormat(labelWidth, 7, r.label, "", 0, "R", false, 0, "")
		doc.CellFormat(columnWidths[3], 7, r.value, "", 1, "R", false, 0, "")
	}

	if d.Notes != "" {
		doc.Ln(4)
		writeBlock(doc, tr, "Notes", d.Notes)
	}
	if d.Terms != "" {
		doc.Ln(2)
		writeBlock(doc, tr, "Terms", d.Terms)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeLines(doc *gofpdf.Fpdf, tr func(string) string, heading string, lines ...string) {
	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(0, lineHeight, heading, "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 10)
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		doc.MultiCell(0, lineHeight, tr(l), "", "L", false)
	}
	doc.Ln(2)
}

func writeBlock(doc *gofpdf.Fpdf, tr func(string) string, heading, body string) {
	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(0, lineHeight, heading, "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 9)
	doc.MultiCell(0, 5, tr(body), "", "L", false)
}

// Info summarizes a PDF document
type Info struct {
	Pages int
	Size  int
}

// Inspect parses data as a PDF and reports its page count. Anything that is
// not a readable PDF with at least one page is rejected.
func Inspect(data []byte) (info Info, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return Info{}, ErrNotPDF
	}

	// rsc.io/pdf panics on malformed cross-reference data
	defer func() {
		if r := recover(); r != nil {
			info, err = Info{}, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	pages := r.NumPage()
	if pages == 0 {
		return Info{}, fmt.Errorf("%w: document has no pages", ErrNotPDF)
	}
	return Info{Pages: pages, Size: len(data)}, nil
}
