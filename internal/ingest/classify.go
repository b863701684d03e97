package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/clientscore/internal/model"
)

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// classifyValue infers the type of a raw dynamic column value: decimal
// numbers become floats, whole numbers integers, everything else stays text.
// A number that does not fit its type is kept as text.
func classifyValue(raw string) model.Value {
	if !numericPattern.MatchString(raw) {
		return model.String(raw)
	}

	if strings.Contains(raw, ".") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.String(raw)
		}
		return model.Float(f)
	}

	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return model.String(raw)
	}
	return model.Int(i)
}
