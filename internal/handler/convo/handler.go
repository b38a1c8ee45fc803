package convo

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	model "github.com/parleylab/parley/internal/model/convo"
	convoservice "github.com/parleylab/parley/internal/service/convo"
	"github.com/parleylab/parley/pkg/utils"
)

// Handler exposes conversation creation, reads, and turn progression.
type Handler struct {
	svc *convoservice.Service
}

// New creates the conversation handler.
func New(svc *convoservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreate)
	r.Get("/conversations", h.handleList)
	r.Get("/conversations/{conversationID}", h.handleGet)
	r.Post("/conversations/{conversationID}/next", h.handleNext)
}

// conversationPayload is the client-facing projection: the persisted state is
// reduced to its view so option transitions stay server-side.
type conversationPayload struct {
	ID        string           `json:"id"`
	Agent     string           `json:"agent"`
	Info      model.Info       `json:"info"`
	State     *model.StateView `json:"state,omitempty"`
	Elements  []model.Element  `json:"elements"`
	CreatedTs int64            `json:"createdTs"`
}

func viewOf(conv *model.Conversation) conversationPayload {
	elements := conv.Elements
	if elements == nil {
		elements = []model.Element{}
	}
	return conversationPayload{
		ID:        conv.ID,
		Agent:     conv.Agent,
		Info:      conv.Info,
		State:     conv.View(),
		Elements:  elements,
		CreatedTs: conv.CreatedTs,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Kind  model.Kind `json:"kind"`
		Level int        `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Kind != model.KindLevel && payload.Kind != model.KindPlayground {
		utils.RespondError(w, http.StatusBadRequest, "kind must be 'level' or 'playground'")
		return
	}

	conv, err := h.svc.Create(r.Context(), user, convoservice.CreateRequest{
		Kind:  payload.Kind,
		Level: payload.Level,
	})
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, viewOf(conv))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	kind := model.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = model.KindLevel
	}
	level := 0
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "level must be an integer")
			return
		}
		level = parsed
	}

	summaries, err := h.svc.List(r.Context(), user, kind, level)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	if summaries == nil {
		summaries = []model.Summary{}
	}

	utils.RespondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	conv, err := h.svc.Get(r.Context(), user, chi.URLParam(r, "conversationID"))
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, viewOf(conv))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Option model.SelectedOption `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Option.Kind == "" {
		payload.Option.Kind = model.OptionNone
	}

	step, err := h.svc.Progress(r.Context(), user, chi.URLParam(r, "conversationID"), payload.Option)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, step)
}

// requireUser reads the caller identity from the X-User-Name header.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.Header.Get("X-User-Name")
	if user == "" {
		utils.RespondError(w, http.StatusBadRequest, "X-User-Name header is required")
		return "", false
	}
	return user, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, convoservice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, convoservice.ErrInvalidSelection),
		errors.Is(err, convoservice.ErrUnknownStage):
		return http.StatusBadRequest
	case errors.Is(err, convoservice.ErrStageLocked):
		return http.StatusForbidden
	case errors.Is(err, convoservice.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
