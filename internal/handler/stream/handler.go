package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	convoservice "github.com/parleylab/parley/internal/service/convo"
	"github.com/parleylab/parley/pkg/utils"
)

// Handler streams committed turn events over Server-Sent Events.
type Handler struct {
	svc *convoservice.Service
}

// New creates the stream handler.
func New(svc *convoservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the event stream routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	userName := r.Header.Get("X-User-Name")
	if userName == "" {
		userName = r.URL.Query().Get("user")
	}
	if userName == "" {
		utils.RespondError(w, http.StatusBadRequest, "X-User-Name header is required")
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	if _, err := h.svc.Get(r.Context(), userName, conversationID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	events, cancel := h.svc.Broker().Subscribe(conversationID)
	defer cancel()

	ctx := r.Context()
	log.Printf("[sse] opening event stream conversation=%s user=%s", conversationID, userName)

	utils.SendSSEEvent(w, flusher, "status", map[string]string{"message": "stream established"})

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing event stream conversation=%s", conversationID)
			return
		case event := <-events:
			utils.SendSSEEvent(w, flusher, "step", event)
		case t := <-ticker.C:
			utils.SendSSEChunk(w, flusher, map[string]any{
				"event": "heartbeat",
				"time":  t.UTC().Format(time.RFC3339),
			})
		}
	}
}
