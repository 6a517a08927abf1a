package billing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	_ "github.com/vendorbridge/vendorbridge/testing"
)

func newTestRouter(t *testing.T) (*chi.Mux, *memoryBillRepo, *stubLinks) {
	t.Helper()
	repo := newMemoryBillRepo()
	links := newStubLinks(7)
	svc, _, _ := newBillService(repo, links)
	r := chi.NewRouter()
	r.Route("/bills", NewHandler(nil, svc).MountRoutes)
	return r, repo, links
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateBill(t *testing.T) {
	router, _, links := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/bills", map[string]any{
		"vendor_id":         1,
		"purchase_order_id": 7,
		"items": []map[string]any{
			{"description": "widgets", "quantity": 2, "unit_price": 10},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID              int64   `json:"id"`
		BillNumber      string  `json:"bill_number"`
		Status          string  `json:"status"`
		PaymentStatus   string  `json:"payment_status"`
		TotalAmount     float64 `json:"total_amount"`
		PurchaseOrderID *int64  `json:"purchase_order_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "issued", resp.Status)
	require.Equal(t, "unpaid", resp.PaymentStatus)
	require.InDelta(t, 20.0, resp.TotalAmount, 0.001)
	require.NotNil(t, resp.PurchaseOrderID)
	require.Equal(t, []int64{7}, links.attached)
}

func TestHandlerCreateBillValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/bills", map[string]any{"vendor_id": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestHandlerUpdateConflictMapsTo409(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/bills", map[string]any{
		"vendor_id": 1,
		"items":     []map[string]any{{"description": "widgets", "quantity": 1, "unit_price": 5}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPut, "/bills/1", map[string]any{"payment_status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code)

	// completed + paid refuses a manual draft.
	rec = doJSON(t, router, http.MethodPut, "/bills/1", map[string]any{"status": "draft"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var problem struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, http.StatusConflict, problem.Status)
	require.Contains(t, problem.Detail, "completed")
}

func TestHandlerClearPurchaseOrderWithNull(t *testing.T) {
	router, _, links := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/bills", map[string]any{
		"vendor_id":         1,
		"purchase_order_id": 7,
		"items":             []map[string]any{{"description": "widgets", "quantity": 1, "unit_price": 5}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/bills/1", bytes.NewBufferString(`{"purchase_order_id": null}`))
	req.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	var resp struct {
		PurchaseOrderID *int64 `json:"purchase_order_id"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	require.Nil(t, resp.PurchaseOrderID)
	require.Nil(t, links.refs[7])
}

func TestHandlerGetMissingMapsTo404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/bills/42", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/bills/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
