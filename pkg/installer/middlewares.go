package installer

import (
	"context"
	"time"

	"github.com/certops/rdscert/pkg/store"

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

func (mw loggingMiddleware) Convert(ctx context.Context, crtPath string, keyPath string, pfxPath string) (err error) {
	defer func(begin time.Time) {
		mw.logger.Log(
			"method", "Convert",
			"pfx", pfxPath,
			"took", time.Since(begin),
			"err", err)
	}(time.Now())
	return mw.next.Convert(ctx, crtPath, keyPath, pfxPath)
}

func (mw loggingMiddleware) Install(ctx context.Context, pfxPath string) (outcome store.ImportOutcome, err error) {
	defer func(begin time.Time) {
		mw.logger.Log(
			"method", "Install",
			"outcome", outcome.String(),
			"took", time.Since(begin),
			"err", err)
	}(time.Now())
	return mw.next.Install(ctx, pfxPath)
}

func (mw loggingMiddleware) Bind(ctx context.Context, fingerprint string) (err error) {
	defer func(begin time.Time) {
		mw.logger.Log(
			"method", "Bind",
			"fingerprint", fingerprint,
			"took", time.Since(begin),
			"err", err)
	}(time.Now())
	return mw.next.Bind(ctx, fingerprint)
}

func (mw loggingMiddleware) Clean(ctx context.Context, activeFingerprint string) (report CleanReport, err error) {
	defer func(begin time.Time) {
		mw.logger.Log(
			"method", "Clean",
			"deleted", report.Deleted,
			"failed", report.Failed,
			"took", time.Since(begin),
			"err", err)
	}(time.Now())
	return mw.next.Clean(ctx, activeFingerprint)
}
