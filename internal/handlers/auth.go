package handlers

import (
	"errors"
	"net/http"

	"github.com/susek555/carmarket-gateway/internal/apperrors"
	"github.com/susek555/carmarket-gateway/internal/handlers/render"
	"github.com/susek555/carmarket-gateway/internal/handlers/sessionctx"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
)

// userResponse is the browser-facing view of the authenticated user. The
// backend's snake_case wire shape never leaves the gateway.
type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Kind        string `json:"kind"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	TaxID       string `json:"taxId,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newUserResponse(s models.Session) userResponse {
	return userResponse{
		ID:          s.User.ID.String(),
		Username:    s.User.Username,
		Email:       s.User.Email,
		Kind:        string(s.User.Kind),
		FirstName:   s.User.FirstName,
		LastName:    s.User.LastName,
		CompanyName: s.User.CompanyName,
		TaxID:       s.User.TaxID,
		Error:       s.Error,
	}
}

func handleLogin(sessions sessionService, l logger.Logger) http.Handler {
	type request struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		s, err := sessions.Authenticate(r.Context(), data.Login, data.Password)
		if err != nil {
			var fieldErrs apperrors.FieldErrors
			switch {
			case errors.As(err, &fieldErrs):
				render.FieldErrors(w, fieldErrs, http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid login or password", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrBackendUnavailable):
				render.ServiceError(w, "Backend unavailable", http.StatusBadGateway)
			default:
				l.Error("Login failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		if err := sessions.IssueCookie(w, s); err != nil {
			l.Error("Failed to issue session cookie", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newUserResponse(s))
	})
}

// handleRefresh rolls the access token if it is stale. A session the backend
// refused to refresh gets its cookie cleared so the client re-logins instead
// of looping.
func handleRefresh(sessions sessionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		current := sessions.Refresh(r.Context(), s)
		if current.Error != "" {
			sessions.ClearCookie(w)
			render.ServiceError(w, "Session expired", http.StatusUnauthorized)
			return
		}

		if err := sessions.IssueCookie(w, current); err != nil {
			l.Error("Failed to issue session cookie", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newUserResponse(current))
	})
}

func handleLogout(sessions sessionService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := sessionctx.FromContext(r.Context())
		sessions.Logout(r.Context(), w, s)
		l.Debug("User logged out", "user_id", s.User.ID)
		render.JSON(w, response{Message: "Logged out"})
	})
}

func handleMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		render.JSON(w, newUserResponse(s))
	})
}
