package exporter

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/certops/rdscert/pkg/client"
	"github.com/certops/rdscert/pkg/ledger"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Decision is the comparator verdict for a freshly fetched certificate.
type Decision int

const (
	// Reject discards the fetched certificate and keeps the prior state. It
	// is the zero value so an unset decision never promotes anything.
	Reject Decision = iota
	// Keep means the fetched certificate is already the active one.
	Keep
	// Replace promotes the fetched certificate into files plus a ledger record.
	Replace
)

func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Replace:
		return "replace"
	default:
		return "reject"
	}
}

var (
	ErrNotYetValid      = errors.New("the received certificate is not yet valid")
	ErrExpiryRegression = errors.New("the received certificate expires before the existing one")
)

type Service interface {
	Fetch(ctx context.Context) (*client.Certificate, error)
	Decide(ctx context.Context, cert *client.Certificate) (Decision, error)
	Export(ctx context.Context, cert *client.Certificate) error
}

// Output holds the export destinations. Empty paths skip that file.
type Output struct {
	Crt string
	Key string
	Cab string
}

type sslExporter struct {
	remote  client.Remote
	ledger  ledger.Ledger
	history ledger.Ledger
	domain  string
	output  Output
	logger  log.Logger
	now     func() time.Time
}

// NewService builds the fetch-and-export service. history may be nil; when
// set, every exported record is also appended there, best effort.
func NewService(remote client.Remote, l ledger.Ledger, history ledger.Ledger, domain string, output Output, logger log.Logger) Service {
	return &sslExporter{
		remote:  remote,
		ledger:  l,
		history: history,
		domain:  domain,
		output:  output,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *sslExporter) Fetch(ctx context.Context) (*client.Certificate, error) {
	return s.remote.GetCertificate(ctx, s.domain)
}

// Decide applies the replacement rules in their binding order: a
// not-yet-valid certificate is rejected before anything else, a missing or
// corrupt prior record always yields replace, an identical fingerprint is a
// no-op even if the recorded window differs, and a replacement must
// strictly extend the recorded expiry.
func (s *sslExporter) Decide(ctx context.Context, cert *client.Certificate) (Decision, error) {
	if cert.ValidFrom > s.now().Unix() {
		level.Error(s.logger).Log("fingerprint", cert.Fingerprint, "valid_from", timestamp2datetime(cert.ValidFrom),
			"msg", "The received certificate is not valid yet")
		return Reject, ErrNotYetValid
	}

	rec, err := s.ledger.Get()
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			level.Info(s.logger).Log("msg", "No prior certificate record; exporting the received certificate")
		} else {
			level.Warn(s.logger).Log("err", err, "msg", "Exporting the received certificate to override the existing certificate and its corrupted metadata")
		}
		return Replace, nil
	}

	if rec.Fingerprint == cert.Fingerprint {
		level.Info(s.logger).Log("fingerprint", cert.Fingerprint, "msg", "Certificate is up to date")
		return Keep, nil
	}

	if cert.ValidTo <= rec.ValidTo {
		level.Error(s.logger).Log(
			"received_fingerprint", cert.Fingerprint, "received_valid_to", timestamp2datetime(cert.ValidTo),
			"existing_fingerprint", rec.Fingerprint, "existing_valid_to", timestamp2datetime(rec.ValidTo),
			"msg", "The received certificate expires before the existing one")
		return Reject, ErrExpiryRegression
	}

	return Replace, nil
}

// Export writes the certificate, key and CA bundle files, then the ledger
// record. A file write failure aborts with the ledger untouched so the next
// run retries from the prior record. A ledger write failure after the files
// are in place is only warned about: the files are already correct and the
// comparator re-replaces idempotently once the metadata catches up.
func (s *sslExporter) Export(ctx context.Context, cert *client.Certificate) error {
	level.Info(s.logger).Log("fingerprint", cert.Fingerprint, "msg", "Received new certificate, exporting")

	files := []struct {
		name string
		path string
		body string
	}{
		{"crt", s.output.Crt, cert.Crt},
		{"key", s.output.Key, cert.Key},
		{"cab", s.output.Cab, cert.Cab},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if err := ioutil.WriteFile(f.path, []byte(f.body), 0600); err != nil {
			level.Error(s.logger).Log("err", err, "path", f.path, "msg", "Failed to export "+f.name)
			return fmt.Errorf("failed to export %s to %s: %v", f.name, f.path, err)
		}
		level.Info(s.logger).Log("msg", "Exported "+f.name+" to "+f.path)
	}

	rec := ledger.Record{
		Domain:      cert.Domain,
		ValidFrom:   cert.ValidFrom,
		ValidTo:     cert.ValidTo,
		Fingerprint: cert.Fingerprint,
	}
	if err := s.ledger.Put(rec); err != nil {
		// The exported files are already correct; surface the lag to the
		// operator instead of failing the run.
		level.Warn(s.logger).Log("err", err, "msg", "Failed to export metadata; the ledger is now behind the exported files")
	}

	if s.history != nil {
		if err := s.history.Put(rec); err != nil {
			level.Warn(s.logger).Log("err", err, "msg", "Could not append record to the certificate history database")
		}
	}
	return nil
}

func timestamp2datetime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
