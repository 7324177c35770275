package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/slot"
)

// Handler manages WebSocket connections to the change feed.
type Handler struct {
	disp *dispatch.Dispatcher
	log  zerolog.Logger
}

// NewHandler creates a WebSocket handler publishing through disp.
func NewHandler(disp *dispatch.Dispatcher, log zerolog.Logger) *Handler {
	return &Handler{disp: disp, log: log.With().Str("component", "wire").Logger()}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. Each connection
// holds at most one subscription; its changes stream on a separate goroutine
// until the connection drops.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	componentID := ""
	defer func() {
		if componentID != "" {
			h.disp.Registry().Unsubscribe(componentID)
		}
	}()

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.log.Debug().Int("status", int(websocket.CloseStatus(err))).Msg("connection closed")
			}
			return
		}

		switch msg.Type {
		case "subscribe":
			componentID = h.handleSubscribe(ctx, conn, msg, componentID)
		case "publish":
			h.handlePublish(ctx, conn, msg, componentID)
		case "publish_batch":
			h.handlePublishBatch(ctx, conn, msg, componentID)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

// handleSubscribe registers the connection's componentID and starts streaming
// changes. Re-subscribing replaces the previous identity.
func (h *Handler) handleSubscribe(ctx context.Context, conn *websocket.Conn, msg ClientMessage, prev string) string {
	var data SubscribeData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid subscribe data")
			return prev
		}
	}
	componentID := data.ComponentID
	if componentID == "" {
		componentID = uuid.New().String()
	}
	if prev != "" && prev != componentID {
		h.disp.Registry().Unsubscribe(prev)
	}

	ch := h.disp.Registry().Subscribe(componentID)
	go h.stream(ctx, conn, ch)

	h.send(ctx, conn, ServerMessage{
		Type:      "session",
		RequestID: msg.ID,
		Data:      SessionData{ComponentID: componentID},
	})
	return componentID
}

// stream forwards registry changes to the connection until the channel closes
// or the connection dies.
func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, ch <-chan dispatch.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			h.send(ctx, conn, ServerMessage{
				Type: "change",
				Data: ChangeData{Origin: c.Origin, Op: c.Op, State: c.State},
			})
		}
	}
}

func (h *Handler) handlePublish(ctx context.Context, conn *websocket.Conn, msg ClientMessage, componentID string) {
	if componentID == "" {
		h.sendError(ctx, conn, msg.ID, "not_subscribed", "subscribe before publishing")
		return
	}
	var data PublishData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid publish data")
		return
	}
	o, err := op.Decode(data.Op)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "bad_payload", err.Error())
		return
	}

	out, err := h.disp.PublishUpdate(ctx, componentID, o)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, rejectionCode(err), err.Error())
		return
	}
	h.send(ctx, conn, ServerMessage{Type: "ack", RequestID: msg.ID, Data: ackData(out)})
}

func (h *Handler) handlePublishBatch(ctx context.Context, conn *websocket.Conn, msg ClientMessage, componentID string) {
	if componentID == "" {
		h.sendError(ctx, conn, msg.ID, "not_subscribed", "subscribe before publishing")
		return
	}
	var data PublishBatchData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid publish_batch data")
		return
	}

	ops := make([]op.Operation, 0, len(data.Ops))
	for _, env := range data.Ops {
		o, err := op.Decode(env)
		if err != nil {
			h.sendError(ctx, conn, msg.ID, "bad_payload", err.Error())
			return
		}
		ops = append(ops, o)
	}

	res := h.disp.PublishBatch(ctx, componentID, ops)
	ack := BatchAckData{Items: make([]AckData, len(res.Items))}
	for i, item := range res.Items {
		ack.Items[i] = ackData(item.Outcome)
		if item.Err != nil {
			ack.Items[i].Error = item.Err.Error()
		}
	}
	h.send(ctx, conn, ServerMessage{Type: "batch_ack", RequestID: msg.ID, Data: ack})
}

func ackData(out dispatch.Outcome) AckData {
	a := AckData{
		Committed: out.Committed,
		NoOp:      out.NoOp,
		WidgetID:  out.WidgetID,
	}
	if out.PersistErr != nil {
		a.PersistErr = out.PersistErr.Error()
	}
	return a
}

func rejectionCode(err error) string {
	var v *slot.Violation
	if errors.As(err, &v) {
		switch v.Kind {
		case slot.LimitReached:
			return "limit_reached"
		case slot.TypeNotAllowed:
			return "type_not_allowed"
		}
	}
	var bad *op.BadPayloadError
	if errors.As(err, &bad) {
		return "bad_payload"
	}
	var cfg *slot.ConfigParseError
	if errors.As(err, &cfg) {
		return "config_invalid"
	}
	var dup *op.DuplicateIDError
	if errors.As(err, &dup) {
		return "duplicate_id"
	}
	var oob *op.OutOfBoundsError
	if errors.As(err, &oob) {
		return "out_of_bounds"
	}
	return "internal_error"
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug().Err(err).Msg("write failed")
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
