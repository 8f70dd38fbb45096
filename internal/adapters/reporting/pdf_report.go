// Package reporting renders a PDF summary of a capture run's handshake
// store for hand-off to an analyst who is not going to read the raw
// hashcat export.
package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/rook-sec/fourway22000/internal/core/domain"
	"github.com/rook-sec/fourway22000/internal/core/export"
)

// CaptureSummary is the data a PDF capture report is rendered from.
type CaptureSummary struct {
	Title      string
	GeneratedAt time.Time
	Records    []*domain.HandshakeRecord
}

// PDFReporter renders CaptureSummary values to PDF bytes.
type PDFReporter struct{}

// NewPDFReporter returns a reporter instance.
func NewPDFReporter() *PDFReporter {
	return &PDFReporter{}
}

// Render generates a PDF report and returns its bytes.
func (p *PDFReporter) Render(summary CaptureSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	p.addHeader(pdf, summary)
	p.addOverview(pdf, summary)
	p.addRecordsTable(pdf, summary)
	p.addFooter(pdf, summary)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render capture report: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *PDFReporter) addHeader(pdf *gofpdf.Fpdf, summary CaptureSummary) {
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 51, 102)
	title := summary.Title
	if title == "" {
		title = "Handshake Capture Report"
	}
	pdf.CellFormat(0, 14, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", summary.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (p *PDFReporter) addOverview(pdf *gofpdf.Fpdf, summary CaptureSummary) {
	complete, pmkidOnly, partial := 0, 0, 0
	for _, rec := range summary.Records {
		switch {
		case rec.Complete():
			complete++
		case rec.HasPMKID():
			pmkidOnly++
		default:
			partial++
		}
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Overview", "", 1, "L", false, 0, "")

	stats := []struct {
		label string
		value int
		color []int
	}{
		{"Total handshake records", len(summary.Records), []int{0, 102, 204}},
		{"Complete (WPA*02 eligible)", complete, []int{52, 199, 89}},
		{"PMKID only (WPA*01 eligible)", pmkidOnly, []int{255, 149, 0}},
		{"Partial (not exportable)", partial, []int{150, 150, 150}},
	}

	pdf.SetFont("Arial", "", 11)
	for _, stat := range stats {
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(90, 7, stat.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(0, 7, fmt.Sprintf("%d", stat.value), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
	}
	pdf.Ln(8)
}

func (p *PDFReporter) addRecordsTable(pdf *gofpdf.Fpdf, summary CaptureSummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Records", "", 1, "L", false, 0, "")

	if len(summary.Records) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No handshake records observed", "", 1, "L", false, 0, "")
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(45, 8, "AP MAC", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Client MAC", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "SSID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Status", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, rec := range summary.Records {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}

		status := "partial"
		r, g, b := 150, 150, 150
		if rec.Complete() {
			status = "complete"
			r, g, b = 52, 199, 89
		} else if rec.HasPMKID() {
			status = "pmkid only"
			r, g, b = 255, 149, 0
		}

		apMAC, clientMAC, essid := "", "", ""
		if rec.MacAP != nil {
			apMAC = rec.MacAP.String()
		}
		if rec.MacClient != nil {
			clientMAC = rec.MacClient.String()
		}
		if rec.ESSID != nil {
			essid = *rec.ESSID
		}

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(45, 7, apMAC, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, clientMAC, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, essid, "1", 0, "L", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(30, 7, status, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (p *PDFReporter) addFooter(pdf *gofpdf.Fpdf, summary CaptureSummary) {
	eligible := 0
	for _, rec := range summary.Records {
		if _, ok := export.Export22000(rec); ok {
			eligible++
		}
	}

	pdf.SetY(-20)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("%d record(s) exportable to hashcat 22000 format", eligible), "", 1, "C", false, 0, "")
}
