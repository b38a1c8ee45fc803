package stage

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleylab/parley/internal/flow"
	"github.com/parleylab/parley/internal/store"
	"github.com/parleylab/parley/pkg/utils"
)

// UserStore is the slice of persistence the stage handler needs.
type UserStore interface {
	EnsureUser(ctx context.Context, name string) (store.User, error)
}

// Handler reports the caller's stage unlock progress.
type Handler struct {
	users UserStore
}

// New creates the stage handler.
func New(users UserStore) *Handler {
	return &Handler{users: users}
}

// RegisterRoutes registers the stage routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stages", h.handleListStages)
}

type stagePayload struct {
	Stage        string `json:"stage"`
	Unlocked     bool   `json:"unlocked"`
	SentMessages int    `json:"sentMessages"`
}

func (h *Handler) handleListStages(w http.ResponseWriter, r *http.Request) {
	userName := r.Header.Get("X-User-Name")
	if userName == "" {
		utils.RespondError(w, http.StatusBadRequest, "X-User-Name header is required")
		return
	}

	user, err := h.users.EnsureUser(r.Context(), userName)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load user progress")
		return
	}

	stages := flow.Stages()
	payload := make([]stagePayload, 0, len(stages))
	for _, stage := range stages {
		payload = append(payload, stagePayload{
			Stage:        stage,
			Unlocked:     flow.Unlocked(stage, user.MaxUnlockedStage),
			SentMessages: user.MessageCounts[stage],
		})
	}

	utils.RespondJSON(w, http.StatusOK, payload)
}
