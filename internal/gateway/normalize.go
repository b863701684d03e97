package gateway

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/clientscore/internal/model"
)

// Candidate response fields per logical value, first present wins
var (
	probabilityFields = []string{"approvalProbability", "probability"}
	decisionFields    = []string{"decision", "verdict"}
)

// Normalize maps a scoring response object onto a PredictionResult.
// Missing or unusable fields become nil; it never fails.
func Normalize(body map[string]any) *model.PredictionResult {
	result := &model.PredictionResult{}
	if v, ok := firstPresent(body, probabilityFields); ok {
		result.Probability = coerceProbability(v)
	}
	if v, ok := firstPresent(body, decisionFields); ok {
		result.Decision = coerceDecision(v)
	}
	return result
}

// firstPresent returns the value of the first key that exists in body,
// even when that value is null
func firstPresent(body map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := body[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func coerceProbability(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func coerceDecision(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	case float64:
		s = strconv.FormatFloat(t, 'g', -1, 64)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(data)
	}
	return &s
}
