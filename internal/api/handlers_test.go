package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"orderdocs/internal/document"
	"orderdocs/internal/kpi"
)

// setGinTestMode keeps gin quiet during tests.
func setGinTestMode() { gin.SetMode(gin.TestMode) }

type docs []document.Document

func (d docs) Scan(ctx context.Context, fn func(document.Document) error) error {
	for _, x := range d {
		if err := fn(x); err != nil {
			return err
		}
	}
	return nil
}

type brokenKPIs struct{}

func (brokenKPIs) All(context.Context, kpi.Options) (kpi.Report, error) {
	return kpi.Report{}, errors.New("store down")
}
func (brokenKPIs) ByName(context.Context, string, int) (any, error) {
	return nil, errors.New("store down")
}

func router() *gin.Engine {
	setGinTestMode()
	c, boleto := "c1", "boleto"
	src := docs{{
		ID:       "o1",
		Customer: document.Customer{ID: &c},
		Items:    []document.OrderItem{{OrderItemID: 1, ProductCategory: "toys", Price: 10, FreightValue: 2}},
		Payments: []document.Payment{{PaymentSequential: 1, PaymentType: &boleto, PaymentInstallments: 1, PaymentValue: 12}},
	}}
	return NewRouter(NewHandler(kpi.NewEngine(src), 2, func() string { return "req-1" }))
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLiveEndpoint(t *testing.T) {
	if w := get(router(), "/live"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
}

func TestListKPIs(t *testing.T) {
	w := get(router(), "/kpis")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body)
	}
	var rep kpi.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.RunID != "req-1" || len(rep.RevenueByCategory) != 1 || rep.RevenueByCategory[0].TotalRevenue != 12 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.AvgDeliveryDelay != nil {
		t.Fatalf("delay should be null without delivery dates")
	}
}

func TestGetKPI(t *testing.T) {
	w := get(router(), "/kpis/payment_mix")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var body struct {
		Name   string             `json:"name"`
		Result []kpi.PaymentShare `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Name != "payment_mix" || len(body.Result) != 1 || body.Result[0].Percentage != 100 {
		t.Fatalf("body = %+v", body)
	}
}

func TestGetKPI_Errors(t *testing.T) {
	r := router()
	if w := get(r, "/kpis/churn"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown kpi: got %d, want 404", w.Code)
	}
	if w := get(r, "/kpis/revenue_by_state?limit=-3"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: got %d, want 400", w.Code)
	}

	broken := NewRouter(NewHandler(brokenKPIs{}, 1, nil))
	if w := get(broken, "/kpis"); w.Code != http.StatusInternalServerError {
		t.Fatalf("store error: got %d, want 500", w.Code)
	}
	if w := get(broken, "/kpis/payment_mix"); w.Code != http.StatusInternalServerError {
		t.Fatalf("store error: got %d, want 500", w.Code)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", router()) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve: %v", err)
	}
}
