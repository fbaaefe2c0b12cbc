package tool

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxDescriptionRunes bounds the description that is copied into prompts.
const MaxDescriptionRunes = 200

// Factory is one entry of the startup registration list.
type Factory struct {
	Name string
	New  func() (Tool, error)
}

// Discover instantiates every factory and registers the result. A factory
// that fails or panics is skipped with a warning; duplicates are rejected
// and logged. It returns the number of tools registered.
func Discover(reg *Registry, factories []Factory, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	registered := 0
	for _, f := range factories {
		t, err := instantiate(f)
		if err != nil {
			logger.Warn("skipping tool", zap.String("tool", f.Name), zap.Error(err))
			continue
		}
		if n := utf8.RuneCountInString(t.Description()); n > MaxDescriptionRunes {
			logger.Warn("tool description exceeds prompt budget; truncating",
				zap.String("tool", t.Name()), zap.Int("runes", n))
			t = truncatedDescription{Tool: t}
		}
		if err := reg.Register(t); err != nil {
			var dup *DuplicateToolError
			if errors.As(err, &dup) {
				logger.Error("duplicate tool rejected", zap.String("tool", dup.Name))
			} else {
				logger.Warn("tool registration failed", zap.String("tool", f.Name), zap.Error(err))
			}
			continue
		}
		logger.Debug("registered tool", zap.String("tool", t.Name()))
		registered++
	}
	return registered
}

func instantiate(f Factory) (t Tool, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	if f.New == nil {
		return nil, fmt.Errorf("factory has no constructor")
	}
	t, err = f.New()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("constructor returned nil tool")
	}
	return t, nil
}

type truncatedDescription struct {
	Tool
}

func (t truncatedDescription) Description() string {
	runes := []rune(t.Tool.Description())
	return string(runes[:MaxDescriptionRunes])
}

// Match forwards to the wrapped tool so offline routing still sees it.
func (t truncatedDescription) Match(utterance string) (Params, bool) {
	if m, ok := t.Tool.(Matcher); ok {
		return m.Match(utterance)
	}
	return nil, false
}
