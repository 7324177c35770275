package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/op"
)

// OperationHandler publishes operations on behalf of HTTP clients.
type OperationHandler struct {
	disp *dispatch.Dispatcher
}

// NewOperationHandler creates an OperationHandler.
func NewOperationHandler(disp *dispatch.Dispatcher) *OperationHandler {
	return &OperationHandler{disp: disp}
}

type outcomeResponse struct {
	Committed  bool   `json:"committed"`
	NoOp       bool   `json:"no_op,omitempty"`
	WidgetID   string `json:"widget_id,omitempty"`
	PersistErr string `json:"persist_err,omitempty"`
}

func toOutcomeResponse(out dispatch.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Committed: out.Committed,
		NoOp:      out.NoOp,
		WidgetID:  out.WidgetID,
	}
	if out.PersistErr != nil {
		resp.PersistErr = out.PersistErr.Error()
	}
	return resp
}

// Publish serves POST /v1/entities/{entityID}/operations. The body is an
// operation envelope; the entity id in the URL wins over one in the body.
func (h *OperationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var env op.Envelope
	if err := decodeJSON(r, &env); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", "invalid request body")
		return
	}
	env.EntityID = entityID

	o, err := op.Decode(env)
	if err != nil {
		rejectionToHTTP(w, err)
		return
	}

	out, err := h.disp.PublishUpdate(r.Context(), componentID(r), o)
	if err != nil {
		rejectionToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeResponse(out))
}

type batchRequest struct {
	Ops []op.Envelope `json:"ops"`
}

type batchItemResponse struct {
	outcomeResponse
	Error string `json:"error,omitempty"`
}

type batchResponse struct {
	Items     []batchItemResponse `json:"items"`
	Committed int                 `json:"committed"`
}

// PublishBatch serves POST /v1/entities/{entityID}/operations/batch. Items
// are applied in order; a rejected item does not stop later ones.
func (h *OperationHandler) PublishBatch(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", "invalid request body")
		return
	}
	if len(req.Ops) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", "ops is empty")
		return
	}

	ops := make([]op.Operation, 0, len(req.Ops))
	for _, env := range req.Ops {
		env.EntityID = entityID
		o, err := op.Decode(env)
		if err != nil {
			rejectionToHTTP(w, err)
			return
		}
		ops = append(ops, o)
	}

	res := h.disp.PublishBatch(r.Context(), componentID(r), ops)
	resp := batchResponse{Items: make([]batchItemResponse, len(res.Items)), Committed: res.Committed()}
	for i, item := range res.Items {
		resp.Items[i] = batchItemResponse{outcomeResponse: toOutcomeResponse(item.Outcome)}
		if item.Err != nil {
			resp.Items[i].Error = item.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
