package studytool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

func TestEvaluate(t *testing.T) {
	cases := map[string]string{
		"2 + 2":         "4",
		"2 + 3 * 4":     "14",
		"(2 + 3) * 4":   "20",
		"2^10":          "1024",
		"2**3":          "8",
		"2 ^ 3 ^ 2":     "512",
		"-2^2":          "-4",
		"7 % 3":         "1",
		"10 / 4":        "2.5",
		"sqrt(16) + 1":  "5",
		"3 × 4 ÷ 2":     "6",
		"1.5e3 - 500":   "1000",
		"2 * -3":        "-6",
	}
	for expr, want := range cases {
		v, err := evaluate(expr)
		if assert.NoError(t, err, expr) {
			assert.Equal(t, want, formatNumber(v), expr)
		}
	}
}

func TestEvaluateRejects(t *testing.T) {
	for _, expr := range []string{"", "2x + 3 = 7", "foo(2)", "(1 + 2", "1 / 0", "hello world", "2 +"} {
		_, err := evaluate(expr)
		assert.Error(t, err, expr)
	}
}

func TestMathMatch(t *testing.T) {
	m := NewMath(nil)

	params, ok := m.Match("calculate 12 * 12")
	require.True(t, ok)
	assert.Equal(t, "12 * 12", params.String("expression"))

	params, ok = m.Match("What is 2 + 2?")
	require.True(t, ok)
	assert.Equal(t, "2 + 2", params.String("expression"))

	_, ok = m.Match("What is photosynthesis?")
	assert.False(t, ok)
}

func TestMathExecuteLocal(t *testing.T) {
	m := NewMath(nil)
	out, err := m.Execute(context.Background(), tool.Params{"expression": "6 * 7"})
	require.NoError(t, err)
	assert.Equal(t, "6 * 7 = 42", out)
}

func TestMathExecuteDelegatesNonArithmetic(t *testing.T) {
	c := &scripted{reply: "x = 2"}
	m := NewMath(c)
	out, err := m.Execute(context.Background(), tool.Params{"expression": "2x + 3 = 7"})
	require.NoError(t, err)
	assert.Equal(t, "x = 2", out)
	assert.Contains(t, c.prompts[0], "2x + 3 = 7")

	_, err = NewMath(nil).Execute(context.Background(), tool.Params{"expression": "2x + 3 = 7"})
	assert.Error(t, err)
}

func TestMathDivisionByZeroNotDelegated(t *testing.T) {
	c := &scripted{reply: "infinity"}
	_, err := NewMath(c).Execute(context.Background(), tool.Params{"expression": "1/0"})
	assert.Error(t, err)
	assert.Empty(t, c.prompts)
}
