package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"dravyalabs/internal/dravya"
	"dravyalabs/internal/events"
	"dravyalabs/internal/form"
)

// Backend is the part of the identification client used for lookups
type Backend interface {
	Search(ctx context.Context, name string) (*dravya.IdentifyResult, error)
	Research(ctx context.Context, dravya, query string) (*dravya.ResearchAnswer, error)
}

// fieldText keeps the literal text of a JSON value so validation sees exactly
// what the client sent. Strings are unquoted; any other literal is kept raw
// and left for validation to reject.
type fieldText string

func (f *fieldText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = fieldText(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			*f = fieldText(data)
			return nil
		}
		*f = fieldText(n.String())
	}
	return nil
}

// IdentifyBody is the JSON body of POST /api/identify
type IdentifyBody struct {
	PH         fieldText `json:"pH"`
	TDS        fieldText `json:"TDS"`
	Turbidity  fieldText `json:"Turbidity"`
	Gas        fieldText `json:"Gas"`
	ColorIndex fieldText `json:"ColorIndex"`
	Temp       fieldText `json:"Temp"`
}

func (b IdentifyBody) reading() form.Reading {
	return form.Reading{
		PH:         string(b.PH),
		TDS:        string(b.TDS),
		Turbidity:  string(b.Turbidity),
		Gas:        string(b.Gas),
		ColorIndex: string(b.ColorIndex),
		Temp:       string(b.Temp),
	}
}

func readingFromRequest(req dravya.IdentifyRequest) form.Reading {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return form.Reading{
		PH:         f(req.PH),
		TDS:        f(req.TDS),
		Turbidity:  f(req.Turbidity),
		Gas:        f(req.Gas),
		ColorIndex: f(req.ColorIndex),
		Temp:       f(req.Temp),
	}
}

// outcomeStatus maps an outcome onto the HTTP status of the reply carrying it
func outcomeStatus(out form.Outcome) int {
	kind, failed := out.Failure()
	if !failed {
		return http.StatusOK
	}
	return failureStatus(kind)
}

func failureStatus(kind form.FailureKind) int {
	switch kind {
	case form.FailureValidation:
		return http.StatusUnprocessableEntity
	case form.FailureServer, form.FailureNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IdentifyHandler handles the JSON identification endpoints
type IdentifyHandler struct {
	controller *form.Controller
	backend    Backend
	recorder   *recorder
}

// NewIdentifyHandler creates new identify handler
func NewIdentifyHandler(controller *form.Controller, backend Backend, recorder *recorder) *IdentifyHandler {
	return &IdentifyHandler{controller: controller, backend: backend, recorder: recorder}
}

// State handles GET /api/state
func (h *IdentifyHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.State())
}

// Identify handles POST /api/identify
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var body IdentifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	out, err := h.controller.Submit(r.Context(), body.reading())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	h.recorder.identify(r, out)
	writeJSON(w, outcomeStatus(out), out)
}

// Search handles GET /api/search?name=...
func (h *IdentifyHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name is required"})
		return
	}

	res, err := h.backend.Search(r.Context(), name)
	if err != nil {
		h.recorder.add(r, events.EventSearch, false, name)
		writeJSON(w, failureStatus(form.Classify(err)), map[string]string{"error": form.FailureMessage(err, form.FallbackSearch)})
		return
	}

	h.recorder.add(r, events.EventSearch, true, name+" -> "+res.Dravya)
	writeJSON(w, http.StatusOK, res)
}

// ResearchBody is the JSON body of POST /api/research
type ResearchBody struct {
	Dravya string `json:"dravya"`
	Query  string `json:"query"`
}

// Research handles POST /api/research
func (h *IdentifyHandler) Research(w http.ResponseWriter, r *http.Request) {
	var body ResearchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	body.Dravya = strings.TrimSpace(body.Dravya)
	body.Query = strings.TrimSpace(body.Query)
	if body.Dravya == "" || body.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Dravya and query are required"})
		return
	}

	ans, err := h.backend.Research(r.Context(), body.Dravya, body.Query)
	if err != nil {
		h.recorder.add(r, events.EventResearch, false, body.Dravya)
		writeJSON(w, failureStatus(form.Classify(err)), map[string]string{"error": form.FailureMessage(err, form.FallbackResearch)})
		return
	}

	h.recorder.add(r, events.EventResearch, true, body.Dravya)
	writeJSON(w, http.StatusOK, ans)
}
