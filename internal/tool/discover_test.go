package tool

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDiscover_SkipsBrokenFactories(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reg := NewRegistry()

	n := Discover(reg, []Factory{
		{Name: "quiz", New: func() (Tool, error) { return &mockTool{name: "quiz"}, nil }},
		{Name: "broken", New: func() (Tool, error) { return nil, errors.New("missing dependency") }},
		{Name: "panics", New: func() (Tool, error) { panic("boom") }},
		{Name: "nil", New: func() (Tool, error) { return nil, nil }},
		{Name: "empty"},
		{Name: "math", New: func() (Tool, error) { return &mockTool{name: "math"}, nil }},
	}, zap.New(core))

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"quiz", "math"}, reg.Names())
	assert.Equal(t, 4, logs.FilterMessage("skipping tool").Len())
}

func TestDiscover_RejectsDuplicates(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reg := NewRegistry()

	n := Discover(reg, []Factory{
		{Name: "quiz", New: func() (Tool, error) { return &mockTool{name: "quiz", desc: "first"}, nil }},
		{Name: "quiz2", New: func() (Tool, error) { return &mockTool{name: "quiz", desc: "second"}, nil }},
	}, zap.New(core))

	assert.Equal(t, 1, n)
	got, err := reg.Get("quiz")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Description())
	assert.Equal(t, 1, logs.FilterMessage("duplicate tool rejected").Len())
}

type matchingTool struct {
	mockTool
}

func (m *matchingTool) Match(utterance string) (Params, bool) {
	return Params{"topic": utterance}, true
}

func TestDiscover_TruncatesLongDescriptions(t *testing.T) {
	reg := NewRegistry()
	long := strings.Repeat("d", MaxDescriptionRunes+50)
	Discover(reg, []Factory{
		{Name: "quiz", New: func() (Tool, error) {
			return &matchingTool{mockTool{name: "quiz", desc: long}}, nil
		}},
	}, nil)

	got, err := reg.Get("quiz")
	require.NoError(t, err)
	assert.Len(t, []rune(got.Description()), MaxDescriptionRunes)

	m, ok := got.(Matcher)
	require.True(t, ok)
	params, ok := m.Match("cells")
	require.True(t, ok)
	assert.Equal(t, "cells", params.String("topic"))
}
