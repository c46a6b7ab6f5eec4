package installer

import (
	"context"

	"github.com/certops/rdscert/pkg/store"

	stdopentracing "github.com/opentracing/opentracing-go"
)

type tracingMiddleware struct {
	tracer stdopentracing.Tracer
	next   Service
}

func NewTracingMiddleware(tracer stdopentracing.Tracer) Middleware {
	return func(next Service) Service {
		return &tracingMiddleware{tracer: tracer, next: next}
	}
}

func (mw *tracingMiddleware) Convert(ctx context.Context, crtPath string, keyPath string, pfxPath string) error {
	span, ctx := stdopentracing.StartSpanFromContextWithTracer(ctx, mw.tracer, "Convert")
	defer span.Finish()
	return mw.next.Convert(ctx, crtPath, keyPath, pfxPath)
}

func (mw *tracingMiddleware) Install(ctx context.Context, pfxPath string) (store.ImportOutcome, error) {
	span, ctx := stdopentracing.StartSpanFromContextWithTracer(ctx, mw.tracer, "Install")
	defer span.Finish()
	return mw.next.Install(ctx, pfxPath)
}

func (mw *tracingMiddleware) Bind(ctx context.Context, fingerprint string) error {
	span, ctx := stdopentracing.StartSpanFromContextWithTracer(ctx, mw.tracer, "Bind")
	defer span.Finish()
	return mw.next.Bind(ctx, fingerprint)
}

func (mw *tracingMiddleware) Clean(ctx context.Context, activeFingerprint string) (CleanReport, error) {
	span, ctx := stdopentracing.StartSpanFromContextWithTracer(ctx, mw.tracer, "Clean")
	defer span.Finish()
	return mw.next.Clean(ctx, activeFingerprint)
}
