package installer

import (
	"context"
	"fmt"
	"time"

	"github.com/certops/rdscert/pkg/store"

	"github.com/go-kit/kit/metrics"
)

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func NewInstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return &instrumentingMiddleware{
			requestCount:   counter,
			requestLatency: latency,
			next:           next,
		}
	}
}

func (mw *instrumentingMiddleware) Convert(ctx context.Context, crtPath string, keyPath string, pfxPath string) (err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Convert", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Convert(ctx, crtPath, keyPath, pfxPath)
}

func (mw *instrumentingMiddleware) Install(ctx context.Context, pfxPath string) (outcome store.ImportOutcome, err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Install", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Install(ctx, pfxPath)
}

func (mw *instrumentingMiddleware) Bind(ctx context.Context, fingerprint string) (err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Bind", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Bind(ctx, fingerprint)
}

func (mw *instrumentingMiddleware) Clean(ctx context.Context, activeFingerprint string) (report CleanReport, err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Clean", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Clean(ctx, activeFingerprint)
}
