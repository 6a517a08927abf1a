package billing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vendorbridge/vendorbridge/internal/platform/httpx"
	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// Handler manages bill endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers bill routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type billItemPayload struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

func toBillItems(payload []billItemPayload) []Item {
	if payload == nil {
		return nil
	}
	items := make([]Item, 0, len(payload))
	for _, p := range payload {
		items = append(items, Item{Description: p.Description, Quantity: p.Quantity, UnitPrice: p.UnitPrice})
	}
	return items
}

type createBillRequest struct {
	VendorID        int64             `json:"vendor_id" validate:"required"`
	Items           []billItemPayload `json:"items" validate:"required,min=1,dive"`
	IssueDate       *time.Time        `json:"issue_date"`
	DueDate         *time.Time        `json:"due_date"`
	PurchaseOrderID *int64            `json:"purchase_order_id"`
	TotalAmount     *float64          `json:"total_amount"`
}

// updateBillRequest distinguishes an absent purchase_order_id key from an
// explicit null, which clears the reference.
type updateBillRequest struct {
	Items           []billItemPayload `json:"items"`
	TotalAmount     *float64          `json:"total_amount"`
	DueDate         *time.Time        `json:"due_date"`
	Status          *string           `json:"status"`
	PaymentStatus   *string           `json:"payment_status"`
	PurchaseOrderID json.RawMessage   `json:"purchase_order_id"`
}

type billResponse struct {
	ID              int64             `json:"id"`
	BillNumber      string            `json:"bill_number"`
	VendorID        int64             `json:"vendor_id"`
	PurchaseOrderID *int64            `json:"purchase_order_id"`
	Items           []billItemPayload `json:"items"`
	TotalAmount     float64           `json:"total_amount"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	IssueDate       time.Time         `json:"issue_date"`
	DueDate         time.Time         `json:"due_date"`
	DocumentPath    string            `json:"document_path,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toBillResponse(b Bill) billResponse {
	items := make([]billItemPayload, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, billItemPayload{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return billResponse{
		ID:              b.ID,
		BillNumber:      b.BillNumber,
		VendorID:        b.VendorID,
		PurchaseOrderID: b.PurchaseOrderID,
		Items:           items,
		TotalAmount:     b.TotalAmount,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		IssueDate:       b.IssueDate,
		DueDate:         b.DueDate,
		DocumentPath:    b.DocumentPath,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		VendorID:        req.VendorID,
		Items:           toBillItems(req.Items),
		PurchaseOrderID: req.PurchaseOrderID,
		TotalAmount:     req.TotalAmount,
	}
	if req.IssueDate != nil {
		input.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		input.DueDate = *req.DueDate
	}
	bill, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create bill", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBillResponse(bill))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := billIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBillResponse(bill))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	vendorID, _ := strconv.ParseInt(r.URL.Query().Get("vendor_id"), 10, 64)
	filters := ListFilters{
		Status:        r.URL.Query().Get("status"),
		PaymentStatus: r.URL.Query().Get("payment_status"),
		VendorID:      vendorID,
	}
	if filters.Status != "" {
		if _, err := ParseStatus(filters.Status); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if filters.PaymentStatus != "" {
		if _, err := ParsePaymentStatus(filters.PaymentStatus); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	items, total, err := h.service.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("list bills", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]billResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toBillResponse(b))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"bills":  out,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := billIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	input := UpdateInput{
		Items:       toBillItems(req.Items),
		TotalAmount: req.TotalAmount,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Status = &status
	}
	if req.PaymentStatus != nil {
		payment, err := ParsePaymentStatus(*req.PaymentStatus)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.PaymentStatus = &payment
	}
	if len(req.PurchaseOrderID) > 0 {
		input.SetPurchaseOrder = true
		if string(req.PurchaseOrderID) != "null" {
			var poID int64
			if err := json.Unmarshal(req.PurchaseOrderID, &poID); err != nil || poID <= 0 {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase_order_id")
				return
			}
			input.PurchaseOrderID = &poID
		}
	}
	bill, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBillResponse(bill))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := billIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func billIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", shared.ErrValidation)
	}
	return id, nil
}
