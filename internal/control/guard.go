package control

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	modelpkg "github.com/stupiduntilnot/studbot/internal/model"
)

// ErrCircuitOpen is the cause reported while the breaker rejects calls.
var ErrCircuitOpen = errors.New("completion circuit open")

// Guard wraps a completion provider with a CircuitBreaker. It satisfies
// model.Provider, so callers do not know it is there.
type Guard struct {
	Provider modelpkg.Provider
	Breaker  *CircuitBreaker
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewGuard(p modelpkg.Provider, breaker *CircuitBreaker, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{Provider: p, Breaker: breaker, Logger: logger, Now: time.Now}
}

func (g *Guard) ChatCompletion(ctx context.Context, req modelpkg.Request) (modelpkg.CompletionResponse, error) {
	now := g.Now()
	if !g.Breaker.Allow(now) {
		return modelpkg.CompletionResponse{}, &modelpkg.CompletionError{Provider: "guard", Cause: ErrCircuitOpen}
	}
	resp, err := g.Provider.ChatCompletion(ctx, req)
	if err == nil {
		if g.Breaker.State() != CircuitClosed {
			g.Logger.Info("completion circuit closed")
		}
		g.Breaker.RecordSuccess()
		return resp, nil
	}
	// A caller that gave up is not a service failure.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		if g.Breaker.State() == CircuitHalfOpen {
			g.Breaker.RecordFailure("canceled", g.Now())
		}
		return resp, err
	}
	class := ErrorClass(err)
	g.Breaker.RecordFailure(class, g.Now())
	if g.Breaker.State() == CircuitOpen {
		g.Logger.Warn("completion circuit open",
			zap.String("class", class),
			zap.Duration("cooldown", g.Breaker.Cooldown),
			zap.Error(err))
	}
	return resp, err
}

// ErrorClass buckets a completion error for the breaker.
func ErrorClass(err error) string {
	var ce *modelpkg.CompletionError
	if errors.As(err, &ce) && ce.Timeout {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "provider"
}
