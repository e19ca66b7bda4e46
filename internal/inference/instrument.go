package inference

import (
	"context"

	"github.com/jcandel/hemoscan/internal/metrics"
)

// instrumented wraps a Gateway with call metrics.
type instrumented struct {
	next Gateway
}

// Instrument decorates a gateway so every call is counted by task and
// outcome.
func Instrument(next Gateway) Gateway {
	return &instrumented{next: next}
}

func (i *instrumented) Extract(ctx context.Context, req *Request, out any) error {
	err := i.next.Extract(ctx, req, out)
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	metrics.InferenceCalls.WithLabelValues(req.Task, outcome).Inc()
	return err
}
