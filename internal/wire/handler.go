package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/form"
	"github.com/helloakshay27/hi-society-assets/internal/notify"
	"github.com/helloakshay27/hi-society-assets/internal/types"
	"github.com/helloakshay27/hi-society-assets/internal/validate"
)

// Handler manages WebSocket connections for live form editing.
type Handler struct {
	sessions *form.Manager
	bus      *notify.Bus
}

// NewHandler creates a WebSocket handler over the shared session manager.
func NewHandler(sessions *form.Manager, bus *notify.Bus) *Handler {
	return &Handler{sessions: sessions, bus: bus}
}

// ServeHTTP upgrades to WebSocket, joins the session named in the
// session_id query parameter, and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	sess := h.sessions.Get(sessionID)
	if sess == nil {
		http.Error(w, "unknown or expired session", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("wire: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var assetID int
	var cat string
	_ = sess.With(func(s *types.FormState) error {
		assetID = s.AssetID
		cat = s.Category
		return nil
	})
	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: sess.ID, AssetID: assetID, Category: cat},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("wire: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}

		// Sessions can expire mid-connection; re-check on every message.
		if h.sessions.Get(sess.ID) == nil {
			h.sendError(ctx, conn, msg.ID, "session_expired", "edit session expired")
			return
		}

		switch msg.Type {
		case "field":
			h.handleField(ctx, conn, sess, msg)
		case "validate":
			h.handleValidate(ctx, conn, sess, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleField(ctx context.Context, conn *websocket.Conn, sess *form.Session, msg ClientMessage) {
	var data FieldData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid field data")
		return
	}
	if data.Field == "" {
		h.sendError(ctx, conn, msg.ID, "empty_field", "field name is required")
		return
	}

	var result form.ChangeResult
	var assetID int
	err := sess.With(func(s *types.FormState) error {
		assetID = s.AssetID
		var applyErr error
		result, applyErr = form.Apply(s, form.FieldChange{
			Group:     data.Group,
			Field:     data.Field,
			Value:     data.Value,
			FieldType: types.FieldType(data.FieldType),
		})
		return applyErr
	})
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "apply_error", err.Error())
		return
	}

	h.publish(sess, notify.Event{
		Type: notify.EventFieldChanged, AssetID: assetID, Field: data.Field,
	})
	if result.Warning != nil {
		h.publish(sess, notify.Event{
			Type: notify.EventGuardWarning, AssetID: assetID,
			Field: result.Warning.Field, Message: result.Warning.Message,
		})
		h.send(ctx, conn, ServerMessage{
			Type:      "warning",
			RequestID: msg.ID,
			Data:      *result.Warning,
		})
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "ack",
		RequestID: msg.ID,
		Data:      AckData{Field: data.Field, Applied: result.Applied, Warning: result.Warning},
	})
}

func (h *Handler) handleValidate(ctx context.Context, conn *websocket.Conn, sess *form.Session, msg ClientMessage) {
	var errs []string
	var assetID int
	_ = sess.With(func(s *types.FormState) error {
		assetID = s.AssetID
		errs = validate.Validate(category.Category(s.Category), s)
		return nil
	})
	if len(errs) > 0 {
		h.publish(sess, notify.Event{
			Type: notify.EventValidationFailed, AssetID: assetID, Message: errs[0],
		})
	}
	if errs == nil {
		errs = []string{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "errors",
		RequestID: msg.ID,
		Data:      ErrorsData{Errors: errs},
	})
}

func (h *Handler) publish(sess *form.Session, evt notify.Event) {
	if h.bus == nil {
		return
	}
	if id, err := uuid.Parse(sess.ID); err == nil {
		evt.SessionID = id
	}
	h.bus.Publish(evt)
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("wire: write error: %v", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
