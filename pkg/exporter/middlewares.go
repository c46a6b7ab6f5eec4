package exporter

import (
	"context"
	"time"

	"github.com/certops/rdscert/pkg/client"

	"github.com/go-kit/kit/log"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Service
	logger log.Logger
}

func (mw loggingMiddleware) Fetch(ctx context.Context) (cert *client.Certificate, err error) {
	defer func(begin time.Time) {
		mw.logger.Log(
			"method", "Fetch",
			"took", time.Since(begin),
			"err", err)
	}(time.Now())
	return mw.next.Fetch(ctx)
}

func (mw loggingMiddleware) Decide(ctx context.Context, cert *client.Certificate) (decision Decision, err error) {
	defer func(begin time.Time) {
		mw.logger.Log(
			"method", "Decide",
			"decision", decision.String(),
			"took", time.Since(begin),
			"err", err)
	}(time.Now())
	return mw.next.Decide(ctx, cert)
}

func (mw loggingMiddleware) Export(ctx context.Context, cert *client.Certificate) (err error) {
	defer func(begin time.Time) {
		mw.logger.Log(
			"method", "Export",
			"took", time.Since(begin),
			"err", err)
	}(time.Now())
	return mw.next.Export(ctx, cert)
}
