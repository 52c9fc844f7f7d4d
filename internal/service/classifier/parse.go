package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"ChartVerdict/internal/domain/models"
)

// output is the JSON contract shared by the analyzer script and the remote service.
type output struct {
	Trend      string   `json:"trend"`
	Confidence *float64 `json:"confidence"`
	Volatility *float64 `json:"volatility"`
	Error      string   `json:"error"`
}

// errorReason reports the analyzer's own error message, if any.
type errorReason string

func (e errorReason) Error() string { return string(e) }

// Parse decodes analyzer output. Log lines printed before the result are skipped;
// the last non-empty line must be the JSON object.
func Parse(raw []byte) (models.ChartSignal, error) {
	line := lastLine(raw)
	if len(line) == 0 {
		return models.ChartSignal{}, errors.New("empty classifier output")
	}
	var out output
	if err := json.Unmarshal(line, &out); err != nil {
		return models.ChartSignal{}, fmt.Errorf("malformed classifier output: %w", err)
	}
	if out.Error != "" {
		return models.ChartSignal{}, errorReason(out.Error)
	}
	return out.signal()
}

func (o output) signal() (models.ChartSignal, error) {
	if o.Trend == "" {
		return models.ChartSignal{}, errors.New("classifier output missing trend")
	}
	if o.Confidence == nil {
		return models.ChartSignal{}, errors.New("classifier output missing confidence")
	}
	c := *o.Confidence
	if math.IsNaN(c) || c < 0 || c > 1 {
		return models.ChartSignal{}, fmt.Errorf("confidence %v out of range [0,1]", c)
	}
	sig := models.ChartSignal{Trend: models.ParseTrend(o.Trend), Confidence: c}
	if o.Volatility != nil {
		v := *o.Volatility
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return models.ChartSignal{}, fmt.Errorf("volatility %v out of range", v)
		}
		sig.Volatility = models.Float(v)
	}
	return sig, nil
}

func lastLine(raw []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if l := bytes.TrimSpace(lines[i]); len(l) > 0 {
			return l
		}
	}
	return nil
}
