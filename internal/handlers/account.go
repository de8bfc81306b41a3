package handlers

import (
	"net/http"

	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/handlers/render"
	"github.com/susek555/carmarket-gateway/internal/handlers/sessionctx"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
)

// handleProfileUpdate validates the profile payload, forwards it to the
// backend and, only after the backend accepted it, merges the same fields
// into the session so the next cookie already carries the new identity.
func handleProfileUpdate(p *proxy, sessions sessionService, l logger.Logger) http.Handler {
	type request struct {
		Username    string `json:"username" validate:"required,min=2,max=50"`
		Email       string `json:"email" validate:"required,email"`
		Kind        string `json:"kind" validate:"required,oneof=person company"`
		FirstName   string `json:"firstName" validate:"required_if=Kind person"`
		LastName    string `json:"lastName" validate:"required_if=Kind person"`
		CompanyName string `json:"companyName" validate:"required_if=Kind company"`
		TaxID       string `json:"taxId" validate:"required_if=Kind company"`
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

		update := models.ProfileUpdate{
			Username:    data.Username,
			Email:       data.Email,
			Kind:        models.AccountKind(data.Kind),
			FirstName:   data.FirstName,
			LastName:    data.LastName,
			CompanyName: data.CompanyName,
			TaxID:       data.TaxID,
		}

		body, err := backend.MarshalProfileUpdate(update)
		if err != nil {
			l.Error("Failed to encode profile update", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		req := backend.Request{
			Method: http.MethodPatch,
			Path:   "/users",
			Body:   body,
		}

		resp, current, err := p.fetcher.Do(r.Context(), s, req)
		if err != nil {
			l.Warn("Profile update failed", "error", err)
			render.ServiceError(w, "Backend unavailable", http.StatusBadGateway)
			return
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			current = sessions.Apply(current, update)
		}
		p.syncCookie(w, s, current)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			render.JSON(w, newUserResponse(current))
			return
		}
		copyResponse(w, resp)
	})
}

// handlePasswordChange forwards a password-only payload. Nothing in the
// session changes, the distinct update type just keeps this from ever being
// treated as a profile edit.
func handlePasswordChange(p *proxy, sessions sessionService, l logger.Logger) http.Handler {
	type request struct {
		Password string `json:"password" validate:"required,min=8,max=128"`
	}

	type response struct {
		Message string `json:"message"`
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

		update := models.CredentialUpdate{Password: data.Password}

		body, err := backend.MarshalCredentialUpdate(update)
		if err != nil {
			l.Error("Failed to encode credential update", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		req := backend.Request{
			Method: http.MethodPut,
			Path:   "/users/password",
			Body:   body,
		}

		resp, current, err := p.fetcher.Do(r.Context(), s, req)
		if err != nil {
			l.Warn("Password change failed", "error", err)
			render.ServiceError(w, "Backend unavailable", http.StatusBadGateway)
			return
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			current = sessions.Apply(current, update)
		}
		p.syncCookie(w, s, current)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			render.JSON(w, response{Message: "Password changed"})
			return
		}
		copyResponse(w, resp)
	})
}
