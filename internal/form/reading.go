package form

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"dravyalabs/internal/dravya"
)

// ErrInvalidReading is returned by Reading.Parse when any field is not a finite number.
var ErrInvalidReading = errors.New("invalid sensor reading")

// Reading holds the six inputs exactly as typed by the user.
type Reading struct {
	PH         string `json:"pH"`
	TDS        string `json:"TDS"`
	Turbidity  string `json:"Turbidity"`
	Gas        string `json:"Gas"`
	ColorIndex string `json:"ColorIndex"`
	Temp       string `json:"Temp"`
}

// Parse converts every field or none.
func (r Reading) Parse() (dravya.IdentifyRequest, error) {
	var req dravya.IdentifyRequest

	fields := []struct {
		raw string
		dst *float64
	}{
		{r.PH, &req.PH},
		{r.TDS, &req.TDS},
		{r.Turbidity, &req.Turbidity},
		{r.Gas, &req.Gas},
		{r.ColorIndex, &req.ColorIndex},
		{r.Temp, &req.Temp},
	}

	for _, f := range fields {
		v, ok := parseNumber(f.raw)
		if !ok {
			return dravya.IdentifyRequest{}, ErrInvalidReading
		}
		*f.dst = v
	}
	return req, nil
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
