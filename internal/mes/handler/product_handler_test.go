package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/loomworks/atelier/internal/mes/repository"
	"github.com/loomworks/atelier/internal/mes/service"
	"github.com/loomworks/atelier/internal/mes/testutil"
	"go.uber.org/zap"
)

func setupProductTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, zap.NewNop(), time.Hour)
	handlers := NewHandlers(services, repos, nil, zap.NewNop())

	router := testutil.SetupRouter()
	v1 := testutil.AuthGroup(router, "/api/v1")
	v1.GET("/products", handlers.Product.List)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestProductsListAndSearch(t *testing.T) {
	env := setupProductTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedProduct(t, env.DB, "Linen Shirt", "SHIRT-001", 25.50)
	testutil.SeedProduct(t, env.DB, "Summer Dress", "DRESS-001", 48.00)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/products", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	products := data["products"].([]interface{})
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	w2 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/products?search=dress", nil, token)
	data2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	products2 := data2["products"].([]interface{})
	if len(products2) != 1 {
		t.Fatalf("expected 1 match for 'dress', got %d", len(products2))
	}
	if products2[0].(map[string]interface{})["name"] != "Summer Dress" {
		t.Fatalf("unexpected search result: %v", products2[0])
	}
}
