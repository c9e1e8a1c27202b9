package moderation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Decision is the typed outcome of a moderation call.
type Decision int

const (
	Clean Decision = iota
	Flagged
)

func (d Decision) String() string {
	switch d {
	case Flagged:
		return "flagged"
	default:
		return "clean"
	}
}

// Verdict is the parsed moderation response.
type Verdict struct {
	Decision      Decision
	RewrittenText string
	HasRewrite    bool
}

type decisionResponse struct {
	FinalDecision json.RawMessage `json:"final_decision"`
	Result        *struct {
		RewrittenText *string `json:"rewritten_text"`
	} `json:"result"`
}

// Classify parses a moderation response body. It has no side effects.
// final_decision must be "1" or "0" (string or number); anything else is
// rejected as a TransportError instead of being read as clean.
func Classify(body []byte) (Verdict, error) {
	var resp decisionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Verdict{}, &TransportError{Op: "decode", Err: err}
	}

	decision, err := parseDecision(resp.FinalDecision)
	if err != nil {
		return Verdict{}, &TransportError{Op: "decode", Err: err}
	}

	verdict := Verdict{Decision: decision}
	if resp.Result != nil && resp.Result.RewrittenText != nil {
		verdict.RewrittenText = *resp.Result.RewrittenText
		verdict.HasRewrite = true
	}
	return verdict, nil
}

func parseDecision(raw json.RawMessage) (Decision, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Clean, errors.New("missing final_decision")
	}

	var value string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &value); err != nil {
			return Clean, fmt.Errorf("invalid final_decision: %w", err)
		}
	} else {
		var number json.Number
		if err := json.Unmarshal(raw, &number); err != nil {
			return Clean, fmt.Errorf("invalid final_decision: %w", err)
		}
		value = number.String()
	}

	switch value {
	case "1":
		return Flagged, nil
	case "0":
		return Clean, nil
	default:
		return Clean, fmt.Errorf("unrecognized final_decision %q", value)
	}
}
