package livability

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractScore recovers the trailing JSON object from a free-text oracle
// reply. It takes the text between the last '{' and the last '}' inclusive,
// so a nested object in the trailing text will not parse.
func ExtractScore(reply string) (*ScoreResult, error) {
	start := strings.LastIndex(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || start > end {
		return nil, ErrUnparseableReply
	}

	dec := json.NewDecoder(strings.NewReader(reply[start : end+1]))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, eris.Wrap(ErrUnparseableReply, err.Error())
	}

	score, ok := numeric(obj["score"])
	if !ok {
		return nil, eris.Wrap(ErrUnparseableReply, "score is missing or not numeric")
	}
	explanation, ok := obj["explanation"].(string)
	if !ok {
		return nil, eris.Wrap(ErrUnparseableReply, "explanation is missing or not a string")
	}

	return &ScoreResult{Score: score, Explanation: explanation}, nil
}

func numeric(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
