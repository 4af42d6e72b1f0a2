package service

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var excelHeaders = []string{
	"Order No", "Status", "Priority", "Due Date", "Worker",
	"Product", "Qty", "Done", "Unit Price", "Total",
}

// RenderExcel 同一份报表的xlsx渲染
func (s *ReportService) RenderExcel(report *OrderReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Orders"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	f.SetCellValue(sheet, "A1", "Production Orders Report")
	f.SetCellValue(sheet, "A2", "Generated: "+report.GeneratedAt.Format("2006-01-02 15:04"))
	f.SetCellValue(sheet, "A3", "Filters: "+report.Filters)
	f.SetCellValue(sheet, "A4", fmt.Sprintf(
		"Total orders: %d   Rows: %d   Total qty: %d   Completed qty: %d",
		report.Summary.OrderCount, report.Summary.RowCount,
		report.Summary.TotalQty, report.Summary.TotalCompleted,
	))

	const headerRow = 6
	for i, h := range excelHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "E", "F", 28)

	for i, row := range report.Rows {
		rowNum := headerRow + 1 + i
		values := []interface{}{
			row.OrderNo, row.Status, row.Priority, row.DueDate, row.WorkerName,
			row.ProductName, row.Quantity, row.CompletedQty, row.UnitPrice, row.TotalPrice,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, rowNum), v)
		}
	}

	return f, nil
}
