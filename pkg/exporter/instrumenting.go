package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/certops/rdscert/pkg/client"

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

func (mw *instrumentingMiddleware) Fetch(ctx context.Context) (cert *client.Certificate, err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Fetch", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Fetch(ctx)
}

func (mw *instrumentingMiddleware) Decide(ctx context.Context, cert *client.Certificate) (decision Decision, err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Decide", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Decide(ctx, cert)
}

func (mw *instrumentingMiddleware) Export(ctx context.Context, cert *client.Certificate) (err error) {
	defer func(begin time.Time) {
		lvs := []string{"method", "Export", "error", fmt.Sprint(err != nil)}
		mw.requestCount.With(lvs...).Add(1)
		mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Export(ctx, cert)
}
