package dravya

// IdentifyRequest is the numeric sensor payload accepted by POST /identify.
// Field order matches the feature order the classifier was trained on.
type IdentifyRequest struct {
	PH         float64 `json:"pH"`
	TDS        float64 `json:"TDS"`
	Turbidity  float64 `json:"Turbidity"`
	Gas        float64 `json:"Gas"`
	ColorIndex float64 `json:"ColorIndex"`
	Temp       float64 `json:"Temp"`
}

// IdentifyResult is returned by both /identify and /search.
type IdentifyResult struct {
	Dravya      string  `json:"dravya"`
	Description string  `json:"description"`
	ImageBase64 *string `json:"image_base64,omitempty"`
}

// HasImage reports whether the backend sent a non-empty image payload.
func (r *IdentifyResult) HasImage() bool {
	return r != nil && r.ImageBase64 != nil && *r.ImageBase64 != ""
}

// Image returns the base64 payload exactly as received, or "" when absent.
func (r *IdentifyResult) Image() string {
	if !r.HasImage() {
		return ""
	}
	return *r.ImageBase64
}

// ResearchRequest is the body of POST /research
type ResearchRequest struct {
	Dravya string `json:"dravya"`
	Query  string `json:"query"`
}

// ResearchAnswer is the free-text reply of POST /research
type ResearchAnswer struct {
	Answer string `json:"answer"`
}

// Health is the reply of GET /health
type Health struct {
	Status      string   `json:"status"`
	ModelLoaded bool     `json:"model_loaded"`
	Classes     []string `json:"classes,omitempty"`
}
