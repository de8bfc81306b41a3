package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susek555/carmarket-gateway/internal/apperrors"
	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/handlers/render"
	"github.com/susek555/carmarket-gateway/internal/handlers/sessionctx"
	"github.com/susek555/carmarket-gateway/internal/logger"
)

const earliestProductionYear = 1900

// handlePlaceBid validates a bid before it ever reaches the backend. Amounts
// travel as decimals end to end, float rounding has no business near money.
func handlePlaceBid(p *proxy, l logger.Logger) http.Handler {
	type request struct {
		AuctionID int64           `json:"auctionId" validate:"required"`
		Amount    decimal.Decimal `json:"amount" validate:"required"`
	}

	type wirePayload struct {
		AuctionID int64           `json:"auction_id"`
		Amount    decimal.Decimal `json:"amount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if !data.Amount.IsPositive() {
			fields := apperrors.FieldErrors{}
			fields.Add("amount", "Must be greater than zero")
			render.ValidationFields(w, fields)
			return
		}

		body, err := json.Marshal(wirePayload{AuctionID: data.AuctionID, Amount: data.Amount})
		if err != nil {
			l.Error("Failed to encode bid", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		req := backend.Request{
			Method: http.MethodPost,
			Path:   "/bid",
			Body:   body,
		}

		resp, current, err := p.fetcher.Do(r.Context(), s, req)
		if err != nil {
			l.Warn("Bid forwarding failed", "error", err)
			render.ServiceError(w, "Backend unavailable", http.StatusBadGateway)
			return
		}

		p.syncCookie(w, s, current)
		copyResponse(w, resp)
	})
}

// handleCreateOffer validates a new sale offer and forwards it in the
// backend's wire shape
func handleCreateOffer(p *proxy, l logger.Logger) http.Handler {
	type request struct {
		Title          string          `json:"title" validate:"required,min=5,max=100"`
		Description    string          `json:"description" validate:"max=4000"`
		Price          decimal.Decimal `json:"price" validate:"required"`
		ProductionYear int             `json:"productionYear" validate:"required"`
	}

	type wirePayload struct {
		Title          string          `json:"title"`
		Description    string          `json:"description,omitempty"`
		Price          decimal.Decimal `json:"price"`
		ProductionYear int             `json:"production_year"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		fields := apperrors.FieldErrors{}
		if !data.Price.IsPositive() {
			fields.Add("price", "Must be greater than zero")
		}
		if data.ProductionYear < earliestProductionYear || data.ProductionYear > time.Now().Year()+1 {
			fields.Add("productionYear", "Must be a valid production year")
		}
		if len(fields) > 0 {
			render.ValidationFields(w, fields)
			return
		}

		body, err := json.Marshal(wirePayload{
			Title:          data.Title,
			Description:    data.Description,
			Price:          data.Price,
			ProductionYear: data.ProductionYear,
		})
		if err != nil {
			l.Error("Failed to encode sale offer", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		req := backend.Request{
			Method: http.MethodPost,
			Path:   "/sale-offer",
			Body:   body,
		}

		resp, current, err := p.fetcher.Do(r.Context(), s, req)
		if err != nil {
			l.Warn("Sale offer forwarding failed", "error", err)
			render.ServiceError(w, "Backend unavailable", http.StatusBadGateway)
			return
		}

		p.syncCookie(w, s, current)
		copyResponse(w, resp)
	})
}
