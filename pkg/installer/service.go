package installer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/certops/rdscert/pkg/convert"
	"github.com/certops/rdscert/pkg/rds"
	"github.com/certops/rdscert/pkg/store"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// ErrEmptyStore means the store listing parsed to zero certificates even
// though a prior step added one or found one already present. Reported as
// an anomaly, not a crash.
var ErrEmptyStore = errors.New("no certificates were found in the store, even though a certificate was added or reported to already exist in a previous step")

// CleanReport summarizes a best-effort cleanup sweep.
type CleanReport struct {
	Examined int
	Deleted  int
	Failed   int
}

type Service interface {
	Convert(ctx context.Context, crtPath string, keyPath string, pfxPath string) error
	Install(ctx context.Context, pfxPath string) (store.ImportOutcome, error)
	Bind(ctx context.Context, fingerprint string) error
	Clean(ctx context.Context, activeFingerprint string) (CleanReport, error)
}

type rdsInstaller struct {
	converter convert.Converter
	certStore store.Store
	binder    rds.Binder
	logger    log.Logger
	now       func() time.Time
}

func NewService(converter convert.Converter, certStore store.Store, binder rds.Binder, logger log.Logger) Service {
	return &rdsInstaller{
		converter: converter,
		certStore: certStore,
		binder:    binder,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *rdsInstaller) Convert(ctx context.Context, crtPath string, keyPath string, pfxPath string) error {
	return s.converter.ToPKCS12(ctx, crtPath, keyPath, pfxPath)
}

func (s *rdsInstaller) Install(ctx context.Context, pfxPath string) (store.ImportOutcome, error) {
	return s.certStore.Import(ctx, pfxPath)
}

func (s *rdsInstaller) Bind(ctx context.Context, fingerprint string) error {
	return s.binder.SetCertificate(ctx, fingerprint)
}

// Clean deletes expired certificates from the store. Unlike every other
// stage this one is best effort: each deletion is independent and a failure
// does not stop the sweep. Entries with no expiration and the active
// fingerprint are always retained.
func (s *rdsInstaller) Clean(ctx context.Context, activeFingerprint string) (CleanReport, error) {
	entries, err := s.certStore.List(ctx)
	if err != nil {
		return CleanReport{}, err
	}
	if len(entries) == 0 {
		level.Error(s.logger).Log("err", ErrEmptyStore)
		return CleanReport{}, ErrEmptyStore
	}

	report := CleanReport{Examined: len(entries)}
	now := s.now()
	for _, entry := range entries {
		if strings.EqualFold(entry.Fingerprint, activeFingerprint) || entry.NotAfter == nil {
			continue
		}
		if !entry.NotAfter.Before(now) {
			continue
		}
		level.Info(s.logger).Log("common_name", entry.CommonName, "fingerprint", entry.Fingerprint,
			"not_after", entry.NotAfter.Format("2006-01-02 15:04:05"), "msg", "Found expired certificate")
		if err := s.certStore.Delete(ctx, entry.Fingerprint); err != nil {
			level.Warn(s.logger).Log("err", err, "fingerprint", entry.Fingerprint, "msg", "Could not delete expired certificate")
			report.Failed++
			continue
		}
		report.Deleted++
	}
	level.Info(s.logger).Log("examined", report.Examined, "deleted", report.Deleted, "failed", report.Failed,
		"msg", "Store cleanup finished")
	return report, nil
}
