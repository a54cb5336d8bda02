package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"dravyalabs/internal/dravya"
	"dravyalabs/internal/form"
)

//go:embed web/index.html.tmpl
var webFS embed.FS

var pageTemplate = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"imageSrc": imageSrc,
}).ParseFS(webFS, "web/index.html.tmpl"))

// imageSrc builds the inline data URI for a result image without touching the payload.
func imageSrc(res *dravya.IdentifyResult) template.URL {
	return template.URL("data:image/png;base64," + res.Image())
}

// inputField describes one of the six form inputs
type inputField struct {
	Key         string // JSON key sent to /api/identify
	Name        string // form field name
	ID          string
	Title       string
	Hint        string
	Step        string
	Placeholder string
	get         func(*form.Reading) *string
}

var inputFields = []inputField{
	{"pH", "ph", "ph-value", "pH", "Enter pH value", "0.01", "7.2", func(r *form.Reading) *string { return &r.PH }},
	{"TDS", "tds", "tds-value", "TDS", "Total Dissolved Solids (ppm)", "1", "220", func(r *form.Reading) *string { return &r.TDS }},
	{"Turbidity", "turbidity", "turbidity-value", "Turbidity", "Enter NTU", "0.1", "3.5", func(r *form.Reading) *string { return &r.Turbidity }},
	{"Gas", "gas", "gas-value", "Gas", "Detected Gas Level (ppm)", "1", "15", func(r *form.Reading) *string { return &r.Gas }},
	{"ColorIndex", "colorIndex", "colorindex-value", "Color Index", "Visual scale value", "1", "12", func(r *form.Reading) *string { return &r.ColorIndex }},
	{"Temp", "temperature", "temp-value", "Temperature", "Enter °C", "0.1", "24.6", func(r *form.Reading) *string { return &r.Temp }},
}

type fieldView struct {
	inputField
	Value string
}

type pageData struct {
	Fields   []fieldView
	FieldMap map[string]string
	Loading  bool
	Result   *dravya.IdentifyResult
	Error    string
}

func newPageData(r form.Reading, out form.Outcome) pageData {
	data := pageData{
		FieldMap: make(map[string]string, len(inputFields)),
		Loading:  out.IsLoading(),
	}
	for _, f := range inputFields {
		data.Fields = append(data.Fields, fieldView{inputField: f, Value: *f.get(&r)})
		data.FieldMap[f.Key] = f.Name
	}
	if res, ok := out.Result(); ok {
		data.Result = res
	}
	if msg, ok := out.Message(); ok {
		data.Error = msg
	}
	return data
}

// readingFromForm collects the six inputs from a form-encoded request
func readingFromForm(r *http.Request) form.Reading {
	var reading form.Reading
	for _, f := range inputFields {
		*f.get(&reading) = r.PostFormValue(f.Name)
	}
	return reading
}

// PageHandler renders the identification form
type PageHandler struct {
	controller *form.Controller
	recorder   *recorder
	logger     *zap.Logger
}

// NewPageHandler creates new page handler
func NewPageHandler(controller *form.Controller, recorder *recorder, logger *zap.Logger) *PageHandler {
	return &PageHandler{controller: controller, recorder: recorder, logger: logger}
}

// Show handles GET /
func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request) {
	out := h.controller.State()

	// Prefill with the values behind the current outcome when there are any.
	var reading form.Reading
	if req, ok := out.Request(); ok {
		reading = readingFromRequest(req)
	}
	h.render(w, http.StatusOK, newPageData(reading, out))
}

// Submit handles POST / for browsers without scripting
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	reading := readingFromForm(r)
	out, err := h.controller.Submit(r.Context(), reading)
	if err != nil {
		// Client went away while an earlier submission was in flight.
		return
	}
	h.recorder.identify(r, out)
	h.render(w, outcomeStatus(out), newPageData(reading, out))
}

func (h *PageHandler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
