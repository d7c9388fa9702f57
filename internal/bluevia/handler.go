package bluevia

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// Route patterns served by the handler.
const (
	PreparePayPattern = "POST /bluevia/prepare-pay"
	CheckJWTPattern   = "POST /bluevia/check-jwt"
)

// Handler exposes the service over HTTP with JSON bodies.
type Handler struct {
	service *Service
	logger  observability.Logger
}

// NewHandler creates a handler over service.
func NewHandler(service *Service, logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{service: service, logger: logger}
}

// Register adds the Bluevia routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(PreparePayPattern, h.preparePay)
	mux.HandleFunc(CheckJWTPattern, h.checkJWT)
}

func (h *Handler) preparePay(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.PreparePay(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "jwt": token})
}

func (h *Handler) checkJWT(w http.ResponseWriter, r *http.Request) {
	var req JWTRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.CheckJWT(r.Context(), &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": FieldErrors{nonFieldKey: {"Malformed JSON body."}},
		})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fields FieldErrors
	var tokenErr *InvalidTokenError

	switch {
	case errors.As(err, &tokenErr):
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": tokenErr.Fields})
	case errors.As(err, &fields):
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fields})
	default:
		h.logger.WithContext(r.Context()).Error("bluevia request failed", observability.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write bluevia response", observability.Error(err))
	}
}
