package moderation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		decision Decision
		rewrite  string
		has      bool
	}{
		{"flagged with rewrite", `{"final_decision":"1","result":{"rewritten_text":"***"}}`, Flagged, "***", true},
		{"flagged without rewrite", `{"final_decision":"1"}`, Flagged, "", false},
		{"flagged numeric", `{"final_decision":1,"result":{"rewritten_text":"***"}}`, Flagged, "***", true},
		{"clean string", `{"final_decision":"0","result":{"rewritten_text":"hello"}}`, Clean, "hello", true},
		{"clean numeric", `{"final_decision":0}`, Clean, "", false},
		{"result without rewrite", `{"final_decision":"1","result":{}}`, Flagged, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := Classify([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.decision, verdict.Decision)
			assert.Equal(t, tt.rewrite, verdict.RewrittenText)
			assert.Equal(t, tt.has, verdict.HasRewrite)
		})
	}
}

func TestClassifyRejectsUnrecognizedDecisions(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"final_decision":null}`,
		`{"final_decision":"yes"}`,
		`{"final_decision":"2"}`,
		`{"final_decision":true}`,
		`{"final_decision":1.5}`,
		`not json`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			_, err := Classify([]byte(body))
			require.Error(t, err)
			var transportErr *TransportError
			assert.True(t, errors.As(err, &transportErr))
		})
	}
}

func TestResolve(t *testing.T) {
	clean := Resolve("hello", Verdict{Decision: Clean, RewrittenText: "ignored", HasRewrite: true})
	assert.Equal(t, Result{Original: "hello", Text: "hello"}, clean)

	rewritten := Resolve("badword1", Verdict{Decision: Flagged, RewrittenText: "***", HasRewrite: true})
	assert.Equal(t, Result{Original: "badword1", Text: "***", Flagged: true}, rewritten)

	kept := Resolve("badword1", Verdict{Decision: Flagged})
	assert.Equal(t, Result{Original: "badword1", Text: "badword1", Flagged: true}, kept)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "flagged", Flagged.String())
	assert.Equal(t, "clean", Clean.String())
}
