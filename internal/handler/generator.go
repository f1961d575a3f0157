package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vaultpass/passgen-go/internal/crypto"
	"github.com/vaultpass/passgen-go/internal/middleware"
	"github.com/vaultpass/passgen-go/internal/model"
	"github.com/vaultpass/passgen-go/internal/service"
)

// GeneratorHandler handles HTTP requests for password generation.
type GeneratorHandler struct {
	service  *service.GeneratorService
	defaults crypto.Selection
}

// NewGeneratorHandler creates a new GeneratorHandler. defaults is the
// selection the control page starts with.
func NewGeneratorHandler(svc *service.GeneratorService, defaults crypto.Selection) *GeneratorHandler {
	return &GeneratorHandler{service: svc, defaults: defaults}
}

// HandleGenerate handles POST /api/v1/generate requests.
func (h *GeneratorHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
				return
			}
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
			return
		}
	}

	resp, err := h.service.Generate(req)
	if err != nil {
		switch {
		case errors.Is(err, crypto.ErrEmptyAlphabet):
			writeJSON(w, http.StatusBadRequest, errorResponse(service.Placeholder))
		case service.IsValidationError(err):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			id, _ := middleware.RequestIDFromContext(r.Context())
			slog.Error("password generation failed", "error", err, "request_id", id)
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleClasses handles GET /api/v1/classes requests.
func (h *GeneratorHandler) HandleClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Classes(h.defaults))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}
