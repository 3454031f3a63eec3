// Package httpapi exposes the lead assistant over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tbxark/leadagent/agent"
)

// SessionService is the part of agent.Service the handlers use.
type SessionService interface {
	Turn(ctx context.Context, sessionID, message string) (*agent.TurnResult, error)
	Reset(ctx context.Context, sessionID string) error
}

type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"session_id" validate:"max=128"`
}

type ChatResponse struct {
	Reply        string             `json:"reply"`
	LeadComplete bool               `json:"lead_complete"`
	Collected    map[string]*string `json:"collected"`
}

type Handler struct {
	service  SessionService
	validate *validator.Validate
}

func NewHandler(service SessionService) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Handler{service: service, validate: v}
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/chat", h.Chat)
	r.Post("/chat/", h.Chat)
	r.Post("/reset", h.Reset)
	r.Post("/reset/", h.Reset)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Real Estate Lead Bot API",
		"endpoints": []string{"/chat/", "/reset/"},
	})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decode(r, h.validate, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.service.Turn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		slog.Error("Chat turn failed", "session_id", req.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	JSON(w, http.StatusOK, ChatResponse{
		Reply:        res.Reply,
		LeadComplete: res.LeadComplete,
		Collected:    res.Collected,
	})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if err := h.validate.Var(sessionID, "max=128"); err != nil {
		Error(w, http.StatusBadRequest, "session_id must be at most 128 characters")
		return
	}
	if err := h.service.Reset(r.Context(), sessionID); err != nil {
		slog.Error("Session reset failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "session reset"})
}
