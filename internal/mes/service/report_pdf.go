package service

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDF列宽（A4横向，内容区约277mm）
type pdfColumn struct {
	header string
	width  float64
}

var pdfColumns = []pdfColumn{
	{"Order No", 26},
	{"Status", 30},
	{"Priority", 20},
	{"Due Date", 24},
	{"Worker", 40},
	{"Product", 65},
	{"Qty", 16},
	{"Done", 16},
	{"Unit Price", 20},
	{"Total", 20},
}

const (
	pdfRowHeight     = 6.0
	pdfPageThreshold = 190.0 // 超过后换页重打表头
)

// RenderPDF 将报表渲染为多页表格PDF
func (s *ReportService) RenderPDF(report *OrderReport) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(217, 225, 242)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight, col.header, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	// 报表头：标题、生效过滤条件、汇总
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Production Orders Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Generated: "+report.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Filters: "+report.Filters)
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf(
		"Total orders: %d   Rows: %d   Total qty: %d   Completed qty: %d",
		report.Summary.OrderCount, report.Summary.RowCount,
		report.Summary.TotalQty, report.Summary.TotalCompleted,
	))
	pdf.Ln(8)

	writeHeader()

	for _, row := range report.Rows {
		if pdf.GetY() > pdfPageThreshold {
			pdf.AddPage()
			writeHeader()
		}

		cells := []string{
			row.OrderNo,
			row.Status,
			row.Priority,
			row.DueDate,
			row.WorkerName,
			row.ProductName,
			fmt.Sprintf("%d", row.Quantity),
			fmt.Sprintf("%d", row.CompletedQty),
			row.UnitPrice,
			row.TotalPrice,
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight, truncate(cells[i], col.width), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate 按列宽截断单元格文本，约 1.8mm/字符（8pt Helvetica）
func truncate(text string, width float64) string {
	maxChars := int(width / 1.8)
	if maxChars < 4 {
		maxChars = 4
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars-3]) + "..."
}
