package live

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	model "github.com/parleylab/parley/internal/model/convo"
	convoservice "github.com/parleylab/parley/internal/service/convo"
)

// Handler drives a conversation interactively over a websocket: the client
// submits choices and receives the resulting turns on the same connection.
type Handler struct {
	svc      *convoservice.Service
	upgrader websocket.Upgrader
}

// New creates the live conversation handler.
func New(svc *convoservice.Service) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/conversations/{conversationID}", h.handleConversation)
}

type inboundMessage struct {
	Type   string               `json:"type"`
	Option model.SelectedOption `json:"option"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	// Browsers cannot set headers on websocket dials, so the identity may
	// arrive as a query parameter instead.
	userName := r.Header.Get("X-User-Name")
	if userName == "" {
		userName = r.URL.Query().Get("user")
	}
	if userName == "" {
		http.Error(w, "user identity is required", http.StatusBadRequest)
		return
	}

	conv, err := h.svc.Get(r.Context(), userName, conversationID)
	if err != nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[live] new connection conversation=%s user=%s", conversationID, userName)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, "connected", map[string]any{
		"conversationId": conv.ID,
		"agent":          conv.Agent,
		"state":          conv.View(),
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[live] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			h.handleMessage(ctx, conn, userName, conversationID, &msg)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, userName, conversationID string, msg *inboundMessage) {
	switch msg.Type {
	case "next":
		option := msg.Option
		if option.Kind == "" {
			option.Kind = model.OptionNone
		}
		step, err := h.svc.Progress(ctx, userName, conversationID, option)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.send(conn, "step", step)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) send(conn *websocket.Conn, msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[live] write failed: %v", err)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, "error", map[string]string{"message": message})
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
