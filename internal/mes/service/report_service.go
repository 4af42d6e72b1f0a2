package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/atelier/internal/mes/repository"
)

// ReportService 订单报表服务。复用列表的过滤逻辑，但取全量结果。
type ReportService struct {
	orders *repository.OrderRepository
}

func NewReportService(orders *repository.OrderRepository) *ReportService {
	return &ReportService{orders: orders}
}

// ReportFilters 报表过滤条件，日期区间对 created_at 闭区间生效
type ReportFilters struct {
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Search    string `json:"search"`
	DateFrom  string `json:"date_from"` // YYYY-MM-DD
	DateTo    string `json:"date_to"`   // YYYY-MM-DD, inclusive
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// ReportRow 报表行：订单×明细展开后的一行
type ReportRow struct {
	OrderNo      string
	Status       string
	Priority     string
	DueDate      string
	WorkerName   string
	ProductName  string
	Quantity     int
	CompletedQty int
	UnitPrice    string
	TotalPrice   string
}

// ReportSummary 报表汇总
type ReportSummary struct {
	OrderCount     int
	RowCount       int
	TotalQty       int
	TotalCompleted int
}

// OrderReport 组装完成、待渲染的报表
type OrderReport struct {
	GeneratedAt time.Time
	Filters     string
	Summary     ReportSummary
	Rows        []ReportRow
}

func (f ReportFilters) toListParams() (repository.OrderListParams, error) {
	params := repository.OrderListParams{
		Search:    f.Search,
		SortBy:    f.SortBy,
		SortOrder: f.SortOrder,
	}

	var err error
	if f.Status != "" {
		if params.Status, err = NormalizeStatus(f.Status); err != nil {
			return params, err
		}
	}
	if f.Priority != "" {
		if params.Priority, err = NormalizePriority(f.Priority); err != nil {
			return params, err
		}
	}
	if f.DateFrom != "" {
		from, err := time.Parse("2006-01-02", f.DateFrom)
		if err != nil {
			return params, NewValidationError("date_from must be YYYY-MM-DD")
		}
		params.DateFrom = &from
	}
	if f.DateTo != "" {
		to, err := time.Parse("2006-01-02", f.DateTo)
		if err != nil {
			return params, NewValidationError("date_to must be YYYY-MM-DD")
		}
		// 闭区间：含 date_to 当天
		end := to.AddDate(0, 0, 1)
		params.DateTo = &end
	}

	return params, nil
}

// describeFilters 生效过滤条件的人读描述，打在报表头上
func describeFilters(f ReportFilters, params repository.OrderListParams) string {
	var parts []string
	if params.Status != "" {
		parts = append(parts, "Status: "+params.Status)
	}
	if params.Priority != "" {
		parts = append(parts, "Priority: "+params.Priority)
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", f.Search))
	}
	if f.DateFrom != "" && f.DateTo != "" {
		parts = append(parts, fmt.Sprintf("Created: %s to %s", f.DateFrom, f.DateTo))
	} else if f.DateFrom != "" {
		parts = append(parts, "Created from: "+f.DateFrom)
	} else if f.DateTo != "" {
		parts = append(parts, "Created until: "+f.DateTo)
	}
	if len(parts) == 0 {
		return "All orders"
	}
	return strings.Join(parts, "; ")
}

// Build 取全量匹配订单并展开为报表行。
// 没有明细的订单也要占一行（"No Products"占位），汇总才对得上订单数。
func (s *ReportService) Build(ctx context.Context, filters ReportFilters) (*OrderReport, error) {
	params, err := filters.toListParams()
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListAll(ctx, params)
	if err != nil {
		return nil, err
	}

	report := &OrderReport{
		GeneratedAt: time.Now(),
		Filters:     describeFilters(filters, params),
	}

	for _, order := range orders {
		workerName := ""
		if order.WorkerContact != nil {
			workerName = order.WorkerContact.Name
		}

		if len(order.Products) == 0 {
			report.Rows = append(report.Rows, ReportRow{
				OrderNo:     order.OrderNo,
				Status:      order.Status,
				Priority:    order.Priority,
				DueDate:     order.DueDate.Format("2006-01-02"),
				WorkerName:  workerName,
				ProductName: "No Products",
			})
			continue
		}

		for _, line := range order.Products {
			productName := fmt.Sprintf("product %d", line.ProductID)
			if line.Product != nil {
				productName = line.Product.Name
			}
			report.Rows = append(report.Rows, ReportRow{
				OrderNo:      order.OrderNo,
				Status:       order.Status,
				Priority:     order.Priority,
				DueDate:      order.DueDate.Format("2006-01-02"),
				WorkerName:   workerName,
				ProductName:  productName,
				Quantity:     line.Quantity,
				CompletedQty: line.CompletedQty,
				UnitPrice:    line.UnitPrice.StringFixed(2),
				TotalPrice:   line.TotalPrice.StringFixed(2),
			})
			report.Summary.TotalQty += line.Quantity
			report.Summary.TotalCompleted += line.CompletedQty
		}
	}

	report.Summary.OrderCount = len(orders)
	report.Summary.RowCount = len(report.Rows)

	return report, nil
}

// Filename 含生成日期的下载文件名
func (s *ReportService) Filename(ext string) string {
	return fmt.Sprintf("orders-report-%s.%s", time.Now().Format("2006-01-02"), ext)
}
