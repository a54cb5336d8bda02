package api

import (
	"net/http"
	"strconv"

	"dravyalabs/internal/events"
	"dravyalabs/internal/form"
)

// EventsHandler handles event log endpoints
type EventsHandler struct {
	store *events.Store
}

// NewEventsHandler creates new events handler
func NewEventsHandler(store *events.Store) *EventsHandler {
	return &EventsHandler{store: store}
}

// List returns events from the store
// GET /api/events?limit=50&since=123
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"events": h.store.GetSince(sinceID),
				"lastId": h.store.LastID(),
			})
			return
		}
	}

	limit := 50 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, h.store.Capacity())
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": h.store.GetLast(limit),
		"lastId": h.store.LastID(),
	})
}

// recorder writes handler activity to the event store
type recorder struct {
	store *events.Store
}

func (rec *recorder) add(r *http.Request, t events.EventType, success bool, details string) {
	if rec == nil || rec.store == nil {
		return
	}
	rec.store.Add(t, getClientIP(r), success, details)
}

// identify records the terminal outcome of one submission
func (rec *recorder) identify(r *http.Request, out form.Outcome) {
	if res, ok := out.Result(); ok {
		rec.add(r, events.EventIdentify, true, res.Dravya)
		return
	}
	msg, _ := out.Message()
	if kind, _ := out.Failure(); kind == form.FailureValidation {
		rec.add(r, events.EventIdentifyInvalid, false, msg)
		return
	}
	rec.add(r, events.EventIdentify, false, msg)
}
