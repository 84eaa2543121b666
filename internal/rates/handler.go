package rates

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Msocha19/SSBD-TUL-2023/internal/api"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

const dateLayout = "2006-01-02"

// CreateRateRequest adds a future-dated rate to the table.
type CreateRateRequest struct {
	AccountingRule string `json:"accountingRule" validate:"required,oneof=PER_PERSON PER_SURFACE PER_METER_READING MONTHLY"`
	Value          string `json:"value" validate:"required"`
	EffectiveDate  string `json:"effectiveDate" validate:"required"`
}

// RateResponse is one rate table entry.
type RateResponse struct {
	ID             uuid.UUID       `json:"id"`
	AccountingRule string          `json:"accountingRule"`
	Value          decimal.Decimal `json:"value"`
	EffectiveDate  string          `json:"effectiveDate"`
	Version        int64           `json:"version"`
}

func toRateResponse(rate *repository.Rate) RateResponse {
	return RateResponse{
		ID:             rate.ID,
		AccountingRule: string(rate.AccountingRule),
		Value:          rate.Value,
		EffectiveDate:  rate.EffectiveDate.Format(dateLayout),
		Version:        rate.Version,
	}
}

// Handler exposes the rate table endpoints.
type Handler struct {
	service *Service
	log     *slog.Logger
}

// NewHandler creates a rates Handler.
func NewHandler(service *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, log: log}
}

// ListCurrent handles GET /rates.
func (h *Handler) ListCurrent(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.CurrentRates(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	responses := make([]RateResponse, 0, len(rates))
	for _, rate := range rates {
		responses = append(responses, toRateResponse(rate))
	}
	api.WriteSuccess(w, http.StatusOK, responses)
}

// Create handles POST /rates.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRateRequest
	if !api.Decode(w, r, &req) {
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Invalid rate value", nil)
		return
	}
	effectiveDate, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Invalid effective date", nil)
		return
	}
	rule, _ := repository.ParseAccountingRule(req.AccountingRule)

	rate, err := h.service.CreateRate(r.Context(), rule, value, effectiveDate)
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusCreated, toRateResponse(rate))
}

// Remove handles DELETE /rates/{id}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Invalid rate ID", nil)
		return
	}
	if err := h.service.RemoveFutureRate(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrDuplicateRate):
		api.WriteError(w, http.StatusConflict, api.CodeRateExists, "A rate for this rule and date already exists", nil)
	case errors.Is(err, ErrRateAlreadyEffective):
		api.WriteError(w, http.StatusConflict, api.CodeRateAlreadyEffective, "The rate has already taken effect", nil)
	case errors.Is(err, ErrRateNotInFuture), errors.Is(err, ErrNegativeRateValue):
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, err.Error(), nil)
	default:
		h.log.Error("rate request failed", "error", err)
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternalError, "An unexpected error occurred", nil)
	}
}
