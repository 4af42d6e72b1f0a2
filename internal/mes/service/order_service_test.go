package service_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/loomworks/atelier/internal/mes/entity"
	"github.com/loomworks/atelier/internal/mes/repository"
	"github.com/loomworks/atelier/internal/mes/service"
	"github.com/loomworks/atelier/internal/mes/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOrderService(t *testing.T) (*service.OrderService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return service.NewOrderService(repos, db, zap.NewNop()), db
}

func createTestOrder(t *testing.T, svc *service.OrderService, products ...service.OrderProductInput) *entity.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), service.CreateOrderRequest{
		CustomerNote: "Rush batch",
		DueDate:      "2025-07-01",
		Products:     products,
	}, "user-1")
	require.NoError(t, err)
	return order
}

func TestCreateOrderAssignsNumberAndTotals(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	dress := testutil.SeedProduct(t, db, "Summer Dress", "DRESS-001", 48.00)

	order := createTestOrder(t, svc,
		service.OrderProductInput{ProductID: shirt.ID, Quantity: 10},
		service.OrderProductInput{ProductID: dress.ID, Quantity: 5},
	)

	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{6}$`), order.OrderNo)
	assert.Equal(t, "ORD-000001", order.OrderNo)
	assert.Equal(t, entity.OrderStatusCreated, order.Status)
	assert.Equal(t, entity.PriorityMedium, order.Priority)
	assert.Equal(t, 15, order.TargetPcs)
	require.Len(t, order.Products, 2)

	for _, line := range order.Products {
		if line.ProductID == shirt.ID {
			assert.True(t, line.UnitPrice.Equal(decimal.NewFromFloat(25.50)), "unit price defaults to product price")
			assert.True(t, line.TotalPrice.Equal(decimal.NewFromFloat(255.0)))
		}
	}

	second := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})
	assert.Equal(t, "ORD-000002", second.OrderNo)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	tests := []struct {
		name string
		req  service.CreateOrderRequest
	}{
		{
			name: "missing due date",
			req: service.CreateOrderRequest{
				Products: []service.OrderProductInput{{ProductID: shirt.ID, Quantity: 1}},
			},
		},
		{
			name: "malformed due date",
			req: service.CreateOrderRequest{
				DueDate:  "01/07/2025",
				Products: []service.OrderProductInput{{ProductID: shirt.ID, Quantity: 1}},
			},
		},
		{
			name: "empty products",
			req:  service.CreateOrderRequest{DueDate: "2025-07-01"},
		},
		{
			name: "unknown product",
			req: service.CreateOrderRequest{
				DueDate:  "2025-07-01",
				Products: []service.OrderProductInput{{ProductID: 9999, Quantity: 1}},
			},
		},
		{
			name: "invalid status",
			req: service.CreateOrderRequest{
				DueDate:  "2025-07-01",
				Status:   "FROZEN",
				Products: []service.OrderProductInput{{ProductID: shirt.ID, Quantity: 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req, "user-1")
			var vErr *service.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestCreateOrderNormalizesLowercaseStatus(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	order, err := svc.Create(context.Background(), service.CreateOrderRequest{
		DueDate:  "2025-07-01",
		Status:   "processing",
		Priority: "high",
		Products: []service.OrderProductInput{{ProductID: shirt.ID, Quantity: 2}},
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusProcessing, order.Status)
	assert.Equal(t, entity.PriorityHigh, order.Priority)
}

func TestCreateOrderRejectsInvalidWorker(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	customer := &entity.Contact{Name: "Acme Retail", ContactType: entity.ContactTypeCustomer, IsActive: true}
	require.NoError(t, db.Create(customer).Error)

	_, err := svc.Create(context.Background(), service.CreateOrderRequest{
		DueDate:         "2025-07-01",
		WorkerContactID: &customer.ID,
		Products:        []service.OrderProductInput{{ProductID: shirt.ID, Quantity: 1}},
	}, "user-1")
	var vErr *service.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Invalid worker", vErr.Message)
}

func TestUpdateOrderReplacesLines(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	dress := testutil.SeedProduct(t, db, "Summer Dress", "DRESS-001", 48.00)

	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 10})

	updated, err := svc.Update(context.Background(), order.ID, service.UpdateOrderRequest{
		Products: []service.OrderProductInput{
			{ProductID: dress.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Products, 1)
	assert.Equal(t, dress.ID, updated.Products[0].ProductID)
	assert.Equal(t, 3, updated.TargetPcs)

	var lineCount int64
	require.NoError(t, db.Model(&entity.OrderProduct{}).Where("order_id = ?", order.ID).Count(&lineCount).Error)
	assert.Equal(t, int64(1), lineCount, "old lines must be gone")
}

func TestUpdateOrderKeepsLinesWhenProductsOmitted(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 10})

	note := "Updated note"
	updated, err := svc.Update(context.Background(), order.ID, service.UpdateOrderRequest{
		CustomerNote: &note,
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated note", updated.CustomerNote)
	require.Len(t, updated.Products, 1)
	assert.Equal(t, 10, updated.TargetPcs)
}

func TestUpdateStatusCompletedReconcilesStock(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 10, CompletedQty: 8})

	result, err := svc.UpdateStatus(context.Background(), order.ID, "COMPLETED", "user-1")
	require.NoError(t, err)
	assert.True(t, result.StockUpdated)
	require.Len(t, result.StockUpdates, 1)
	assert.Equal(t, float64(8), result.StockUpdates[0].QtyAdded)
	assert.Equal(t, float64(8), result.StockUpdates[0].QtyOnHand)

	var product entity.Product
	require.NoError(t, db.First(&product, shirt.ID).Error)
	assert.Equal(t, float64(8), product.QtyOnHand)

	var movements []entity.MaterialMovement
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&movements).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementIn, movements[0].MovementType)
	assert.Equal(t, float64(8), movements[0].Quantity)
	assert.Equal(t, float64(8), movements[0].QtyAfter)
	assert.Equal(t, entity.FallbackMaterialID, movements[0].MaterialID)
	assert.Contains(t, movements[0].Notes, order.OrderNo)
}

func TestUpdateStatusCompletedTwiceDoesNotDoubleStock(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 10, CompletedQty: 8})

	_, err := svc.UpdateStatus(context.Background(), order.ID, "COMPLETED", "user-1")
	require.NoError(t, err)

	result, err := svc.UpdateStatus(context.Background(), order.ID, "COMPLETED", "user-1")
	require.NoError(t, err)
	assert.False(t, result.StockUpdated, "repeat COMPLETED must not re-run intake")

	var product entity.Product
	require.NoError(t, db.First(&product, shirt.ID).Error)
	assert.Equal(t, float64(8), product.QtyOnHand)

	var movementCount int64
	require.NoError(t, db.Model(&entity.MaterialMovement{}).Where("order_id = ?", order.ID).Count(&movementCount).Error)
	assert.Equal(t, int64(1), movementCount)
}

func TestUpdateStatusSkipsLinesWithoutCompletedQty(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 10})

	result, err := svc.UpdateStatus(context.Background(), order.ID, "COMPLETED", "user-1")
	require.NoError(t, err)
	assert.True(t, result.StockUpdated)
	assert.Empty(t, result.StockUpdates)

	var product entity.Product
	require.NoError(t, db.First(&product, shirt.ID).Error)
	assert.Equal(t, float64(0), product.QtyOnHand)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})

	_, err := svc.UpdateStatus(context.Background(), order.ID, "FROZEN", "user-1")
	var vErr *service.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestUpdateWorkerAssignAndClear(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	worker := testutil.SeedWorker(t, db, "Amina")
	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})

	updated, err := svc.UpdateWorker(context.Background(), order.ID, &worker.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.WorkerContactID)
	assert.Equal(t, worker.ID, *updated.WorkerContactID)
	require.NotNil(t, updated.WorkerContact)
	assert.Equal(t, "Amina", updated.WorkerContact.Name)

	zero := uint(0)
	cleared, err := svc.UpdateWorker(context.Background(), order.ID, &zero)
	require.NoError(t, err)
	assert.Nil(t, cleared.WorkerContactID)
}

func TestDeleteOrderProtectedStatuses(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})

	_, err := svc.UpdateStatus(context.Background(), order.ID, "PROCESSING", "user-1")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), order.ID)
	var vErr *service.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "PROCESSING")
}

func TestDeleteOrderSoftDeletes(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})

	require.NoError(t, svc.Delete(context.Background(), order.ID))

	_, err := svc.GetDetails(context.Background(), order.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// 行记录仍在库里，软删只翻 is_active
	var stored entity.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.False(t, stored.IsActive)
}

func TestListOrdersFiltersAndCounts(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	for i := 0; i < 3; i++ {
		createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})
	}
	urgent, err := svc.Create(context.Background(), service.CreateOrderRequest{
		CustomerNote: "Festival batch",
		DueDate:      "2025-07-01",
		Priority:     "urgent",
		Products:     []service.OrderProductInput{{ProductID: shirt.ID, Quantity: 2}},
	}, "user-1")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), urgent.ID, "PROCESSING", "user-1")
	require.NoError(t, err)

	all, err := svc.List(context.Background(), repository.OrderListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, 1, all.Pages)
	assert.Equal(t, int64(3), all.StatusCounts[entity.OrderStatusCreated])
	assert.Equal(t, int64(1), all.StatusCounts[entity.OrderStatusProcessing])
	assert.Equal(t, int64(1), all.PriorityCounts[entity.PriorityUrgent])

	filtered, err := svc.List(context.Background(), repository.OrderListParams{Status: "processing"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), filtered.Total)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, urgent.ID, filtered.Orders[0].ID)
	// 计数不随筛选变化
	assert.Equal(t, int64(3), filtered.StatusCounts[entity.OrderStatusCreated])

	searched, err := svc.List(context.Background(), repository.OrderListParams{Search: "festival"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), searched.Total)

	paged, err := svc.List(context.Background(), repository.OrderListParams{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), paged.Total)
	assert.Equal(t, 2, paged.Pages)
	assert.Len(t, paged.Orders, 1)
}

func TestOrderTimeline(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})

	_, events, err := svc.Timeline(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "created", events[0].Event)
	assert.Contains(t, events[0].Description, order.OrderNo)

	// 推后 updated_at，时间线应补一条更新事件
	require.NoError(t, db.Model(&entity.Order{}).Where("id = ?", order.ID).
		UpdateColumn("updated_at", order.CreatedAt.Add(time.Hour)).Error)

	_, events, err = svc.Timeline(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "updated", events[1].Event)
}

// failLineInserts 注册一个对明细表插入注错的 create 回调，
// 用来模拟多表写中途失败
func failLineInserts(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("fail_line_insert", func(tx *gorm.DB) {
		if tx.Statement.Table == "mes_order_products" {
			tx.AddError(errors.New("simulated line insert failure"))
		}
	})
	require.NoError(t, err)
}

func TestCreateOrderRollsBackWhenLineInsertFails(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	failLineInserts(t, db)
	defer db.Callback().Create().Remove("fail_line_insert")

	_, err := svc.Create(context.Background(), service.CreateOrderRequest{
		DueDate:  "2025-07-01",
		Products: []service.OrderProductInput{{ProductID: shirt.ID, Quantity: 10}},
	}, "user-1")
	require.Error(t, err)

	// 明细插不进去时订单头也不能留下
	var orderCount int64
	require.NoError(t, db.Model(&entity.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)
}

func TestUpdateLineReplacementIsAtomic(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)
	dress := testutil.SeedProduct(t, db, "Summer Dress", "DRESS-001", 48.00)
	order := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 10})

	failLineInserts(t, db)
	_, err := svc.Update(context.Background(), order.ID, service.UpdateOrderRequest{
		Products: []service.OrderProductInput{{ProductID: dress.ID, Quantity: 3}},
	})
	require.Error(t, err)
	db.Callback().Create().Remove("fail_line_insert")

	// 替换失败后旧明细和 target_pcs 都要原样保留
	current, err := svc.GetDetails(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, current.TargetPcs)
	require.Len(t, current.Products, 1)
	assert.Equal(t, shirt.ID, current.Products[0].ProductID)
	assert.Equal(t, 10, current.Products[0].Quantity)
}

func TestCreateOrderRetriesOnDuplicateNumber(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	first := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})
	createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})

	// 硬删第一单让 count 退回 1：下一单先生成已占用的 ORD-000002，
	// 撞唯一索引后应递增重试而不是报错
	require.NoError(t, db.Exec("DELETE FROM mes_order_products WHERE order_id = ?", first.ID).Error)
	require.NoError(t, db.Exec("DELETE FROM mes_orders WHERE id = ?", first.ID).Error)

	third := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})
	assert.Equal(t, "ORD-000003", third.OrderNo)
}

func TestOrderNumberSequenceSurvivesSoftDelete(t *testing.T) {
	svc, db := setupOrderService(t)
	shirt := testutil.SeedProduct(t, db, "Linen Shirt", "SHIRT-001", 25.50)

	first := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})
	require.NoError(t, svc.Delete(context.Background(), first.ID))

	// 软删的订单仍占号，下一单不能复用 ORD-000001
	second := createTestOrder(t, svc, service.OrderProductInput{ProductID: shirt.ID, Quantity: 1})
	assert.Equal(t, fmt.Sprintf("ORD-%06d", 2), second.OrderNo)
}
