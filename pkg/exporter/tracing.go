package exporter

import (
	"context"

	"github.com/certops/rdscert/pkg/client"

	stdopentracing "github.com/opentracing/opentracing-go"
)

type tracingMiddleware struct {
	tracer stdopentracing.Tracer
	next   Service
}

// NewTracingMiddleware opens one span per service operation under the span
// already carried by ctx, the batch-job counterpart of tracing server
// endpoints.
func NewTracingMiddleware(tracer stdopentracing.Tracer) Middleware {
	return func(next Service) Service {
		return &tracingMiddleware{tracer: tracer, next: next}
	}
}

func (mw *tracingMiddleware) Fetch(ctx context.Context) (*client.Certificate, error) {
	span, ctx := stdopentracing.StartSpanFromContextWithTracer(ctx, mw.tracer, "Fetch")
	defer span.Finish()
	return mw.next.Fetch(ctx)
}

func (mw *tracingMiddleware) Decide(ctx context.Context, cert *client.Certificate) (Decision, error) {
	span, ctx := stdopentracing.StartSpanFromContextWithTracer(ctx, mw.tracer, "Decide")
	defer span.Finish()
	return mw.next.Decide(ctx, cert)
}

func (mw *tracingMiddleware) Export(ctx context.Context, cert *client.Certificate) error {
	span, ctx := stdopentracing.StartSpanFromContextWithTracer(ctx, mw.tracer, "Export")
	defer span.Finish()
	return mw.next.Export(ctx, cert)
}
