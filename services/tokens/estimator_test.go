package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimator_EstimateText(t *testing.T) {
	e := NewEstimator(4)

	t.Run("empty text is zero tokens", func(t *testing.T) {
		assert.Equal(t, 0, e.EstimateText(""))
	})

	t.Run("rounds up to the next token", func(t *testing.T) {
		assert.Equal(t, 1, e.EstimateText("a"))
		assert.Equal(t, 1, e.EstimateText("abcd"))
		assert.Equal(t, 2, e.EstimateText("abcde"))
		assert.Equal(t, 25, e.EstimateText(strings.Repeat("x", 100)))
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		text := "Should we move the release to next sprint?"
		first := e.EstimateText(text)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, e.EstimateText(text))
		}
	})
}

func TestEstimator_Estimate(t *testing.T) {
	e := NewEstimator(4)

	t.Run("total is always the component sum", func(t *testing.T) {
		cases := []struct {
			prompt   string
			response string
		}{
			{"", ""},
			{"short", ""},
			{"", "short"},
			{strings.Repeat("p", 17), strings.Repeat("r", 33)},
			{"analyze the sprint backlog", "move three stories out"},
		}
		for _, c := range cases {
			usage := e.Estimate(c.prompt, c.response)
			assert.Equal(t, usage.PromptTokens+usage.CompletionTokens, usage.TotalTokens)
		}
	})

	t.Run("components are attributed separately", func(t *testing.T) {
		usage := e.Estimate(strings.Repeat("p", 40), strings.Repeat("r", 8))
		assert.Equal(t, 10, usage.PromptTokens)
		assert.Equal(t, 2, usage.CompletionTokens)
		assert.Equal(t, 12, usage.TotalTokens)
	})
}

func TestNewEstimator_InvalidDivisor(t *testing.T) {
	e := NewEstimator(0)
	assert.Equal(t, 1, e.EstimateText("abc"))
	assert.Equal(t, 2, e.EstimateText("abcdefgh"))
}
