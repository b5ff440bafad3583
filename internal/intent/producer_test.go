package intent

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
)

func TestExtractJSON(t *testing.T) {
	plain := `{"complexity":"simple"}`

	cases := map[string]string{
		"bare object":    plain,
		"json fence":     "```json\n" + plain + "\n```",
		"plain fence":    "```\n" + plain + "\n```",
		"leading prose":  "Here is the plan:\n" + plain,
		"trailing prose": plain + "\nLet me know if that helps.",
		"whitespace":     "  \n" + plain + "\n  ",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, plain, extractJSON(raw))
		})
	}

	// nothing object-like passes through untouched
	assert.Equal(t, "no json here", extractJSON("no json here"))
}

func TestExtractJSON_KeepsNestedBraces(t *testing.T) {
	inner := `{"steps":[{"params":{"title":"x"}}]}`
	assert.Equal(t, inner, extractJSON("```json\n"+inner+"\n```"))
}

func TestBoundHistory(t *testing.T) {
	assert.Nil(t, BoundHistory(nil))

	short := []Exchange{{Role: "user", Text: "hi"}}
	assert.Equal(t, short, BoundHistory(short))

	long := make([]Exchange, HistoryWindow+5)
	for i := range long {
		long[i] = Exchange{Role: "user", Text: fmt.Sprintf("turn %d", i)}
	}
	bounded := BoundHistory(long)
	require.Len(t, bounded, HistoryWindow)
	assert.Equal(t, "turn 5", bounded[0].Text)
	assert.Equal(t, fmt.Sprintf("turn %d", HistoryWindow+4), bounded[len(bounded)-1].Text)
}

func TestBuildPrompt(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	prompt := buildPrompt("add buy milk", []Exchange{
		{Role: "user", Text: "what's on my list?"},
		{Role: "assistant", Text: "You have 2 tasks."},
	}, now)

	assert.Contains(t, prompt, now.Format(time.RFC3339))
	assert.Contains(t, prompt, `User command: "add buy milk"`)
	assert.Contains(t, prompt, "user: what's on my list?")
	assert.Contains(t, prompt, "assistant: You have 2 tasks.")
	// every whitelisted filter type is described to the model
	for ft := range spec.AllowedFilterTypes {
		assert.Contains(t, prompt, string(ft))
	}
}

func TestBuildPrompt_NoHistorySection(t *testing.T) {
	prompt := buildPrompt("add buy milk", nil, time.Now())
	assert.NotContains(t, prompt, "Recent conversation:")
}
