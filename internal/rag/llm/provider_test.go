package llm

import (
	"testing"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAppliesOptionsOverDefaults(t *testing.T) {
	temperature := float32(0.7)
	defaults := Options{Temperature: &temperature, MaxTokens: 1024}

	o := Resolve(defaults, WithTemperature(0), WithMaxTokens(4096), WithModel("other-model"), WithJSONResponse())

	require.NotNil(t, o.Temperature)
	assert.Equal(t, float32(0), *o.Temperature)
	assert.Equal(t, 4096, o.MaxTokens)
	assert.Equal(t, "other-model", o.Model)
	assert.True(t, o.JSONResponse)
	// defaults are copied, not mutated
	assert.Equal(t, float32(0.7), *defaults.Temperature)
	assert.Equal(t, 1024, defaults.MaxTokens)
	assert.Empty(t, defaults.Model)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
		{"surrounding space", "  \n```\nx\n```  \n", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]examModel.Message{
		examModel.SystemMessage("one"),
		examModel.UserMessage("hi"),
		examModel.SystemMessage("two"),
		examModel.AssistantMessage("hello"),
	})

	assert.Equal(t, "one\n\ntwo", system)
	require.Len(t, rest, 2)
	assert.Equal(t, examModel.RoleUser, rest[0].Role)
	assert.Equal(t, examModel.RoleAssistant, rest[1].Role)
}
