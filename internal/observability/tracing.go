package observability

import (
	"context"
	"time"
)

// Span times one operation and records its outcome on End.
type Span struct {
	metrics   *Metrics
	operation string
	start     time.Time
}

// StartSpan begins timing operation. A nil Metrics yields a span that records nothing.
func (m *Metrics) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	span := &Span{metrics: m, operation: operation, start: time.Now()}
	return ctx, span
}

// End records the span's duration with result "ok", or "error" when err is non-nil.
func (s *Span) End(err error) {
	if s == nil || s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.RecordOperation(s.operation, result, time.Since(s.start))
}
