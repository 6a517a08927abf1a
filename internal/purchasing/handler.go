package purchasing

import (
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

// Handler manages purchase order endpoints.
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

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}/status", h.setStatus)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/restore", h.restore)
	r.Delete("/{id}", h.permanentDelete)
}

type itemPayload struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

func toItems(payload []itemPayload) []Item {
	if payload == nil {
		return nil
	}
	items := make([]Item, 0, len(payload))
	for _, p := range payload {
		items = append(items, Item{Description: p.Description, Quantity: p.Quantity, UnitPrice: p.UnitPrice})
	}
	return items
}

type createPORequest struct {
	VendorID     int64         `json:"vendor_id" validate:"required"`
	Items        []itemPayload `json:"items" validate:"required,min=1,dive"`
	IssueDate    *time.Time    `json:"issue_date"`
	DeliveryDate *time.Time    `json:"delivery_date"`
	TotalAmount  *float64      `json:"total_amount"`
}

type updatePORequest struct {
	VendorID     *int64        `json:"vendor_id"`
	Items        []itemPayload `json:"items"`
	DeliveryDate *time.Time    `json:"delivery_date"`
	TotalAmount  *float64      `json:"total_amount"`
	Status       *string       `json:"status"`
	Actor        string        `json:"actor"`
}

type poResponse struct {
	ID           int64         `json:"id"`
	OrderNumber  string        `json:"order_number"`
	VendorID     int64         `json:"vendor_id"`
	Items        []itemPayload `json:"items"`
	TotalAmount  float64       `json:"total_amount"`
	Status       string        `json:"status"`
	BillID       *int64        `json:"bill_id"`
	IssueDate    time.Time     `json:"issue_date"`
	DeliveryDate time.Time     `json:"delivery_date"`
	DocumentPath string        `json:"document_path,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func toPOResponse(po PurchaseOrder) poResponse {
	items := make([]itemPayload, 0, len(po.Items))
	for _, it := range po.Items {
		items = append(items, itemPayload{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return poResponse{
		ID:           po.ID,
		OrderNumber:  po.OrderNumber,
		VendorID:     po.VendorID,
		Items:        items,
		TotalAmount:  po.TotalAmount,
		Status:       string(po.Status),
		BillID:       po.BillID,
		IssueDate:    po.IssueDate,
		DeliveryDate: po.DeliveryDate,
		DocumentPath: po.DocumentPath,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		VendorID:    req.VendorID,
		Items:       toItems(req.Items),
		TotalAmount: req.TotalAmount,
	}
	if req.IssueDate != nil {
		input.IssueDate = *req.IssueDate
	}
	if req.DeliveryDate != nil {
		input.DeliveryDate = *req.DeliveryDate
	}
	po, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPOResponse(po))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := poIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	vendorID, _ := strconv.ParseInt(r.URL.Query().Get("vendor_id"), 10, 64)
	filters := ListFilters{
		Status:   r.URL.Query().Get("status"),
		VendorID: vendorID,
	}
	if filters.Status != "" {
		if _, err := ParseStatus(filters.Status); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	items, total, err := h.service.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]poResponse, 0, len(items))
	for _, po := range items {
		out = append(out, toPOResponse(po))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchase_orders": out,
		"total":           total,
		"limit":           limit,
		"offset":          offset,
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := poIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updatePORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	actor, err := ParseActor(req.Actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := UpdateInput{
		VendorID:     req.VendorID,
		Items:        toItems(req.Items),
		DeliveryDate: req.DeliveryDate,
		TotalAmount:  req.TotalAmount,
		Actor:        actor,
	}
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Status = &status
	}
	po, err := h.service.UpdateFields(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po))
}

type setPOStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := poIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req setPOStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.SetStatus(r.Context(), id, status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := poIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po))
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, err := poIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.Restore(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po))
}

func (h *Handler) permanentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := poIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.PermanentDelete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func poIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", shared.ErrValidation)
	}
	return id, nil
}
