package installer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/certops/rdscert/pkg/store"

	"github.com/go-kit/kit/log"
)

type fakeStore struct {
	entries       []store.Entry
	listErr       error
	importOutcome store.ImportOutcome
	importErr     error
	failDelete    map[string]bool
	deleted       []string
}

func (f *fakeStore) Import(ctx context.Context, pfxPath string) (store.ImportOutcome, error) {
	return f.importOutcome, f.importErr
}

func (f *fakeStore) List(ctx context.Context) ([]store.Entry, error) {
	return f.entries, f.listErr
}

func (f *fakeStore) Delete(ctx context.Context, fingerprint string) error {
	if f.failDelete[fingerprint] {
		return errors.New("deletion failed")
	}
	f.deleted = append(f.deleted, fingerprint)
	return nil
}

type fakeConverter struct {
	err error
}

func (f *fakeConverter) ToPKCS12(ctx context.Context, crtPath, keyPath, pfxPath string) error {
	return f.err
}

type fakeBinder struct {
	err   error
	bound string
}

func (f *fakeBinder) SetCertificate(ctx context.Context, fingerprint string) error {
	if f.err != nil {
		return f.err
	}
	f.bound = fingerprint
	return nil
}

func testService(certStore *fakeStore) (*rdsInstaller, *fakeBinder) {
	binder := &fakeBinder{}
	srv := &rdsInstaller{
		converter: &fakeConverter{},
		certStore: certStore,
		binder:    binder,
		logger:    log.NewNopLogger(),
		now:       func() time.Time { return time.Unix(10000, 0) },
	}
	return srv, binder
}

func ts(unix int64) *time.Time {
	t := time.Unix(unix, 0)
	return &t
}

func TestClean(t *testing.T) {
	yesterday := ts(5000)
	tomorrow := ts(20000)

	testCases := []struct {
		name    string
		entries []store.Entry
		active  string
		deleted []string
		failed  int
	}{
		{
			name: "Only expired non-active entries with an expiration are deleted",
			entries: []store.Entry{
				{Fingerprint: "AA", CommonName: "old.example.com", NotAfter: yesterday},
				{Fingerprint: "BB", CommonName: "root ca"},
				{Fingerprint: "CC", CommonName: "rds.example.com", NotAfter: yesterday},
			},
			active:  "CC",
			deleted: []string{"AA"},
		},
		{
			name: "Unexpired entries are retained",
			entries: []store.Entry{
				{Fingerprint: "AA", NotAfter: tomorrow},
				{Fingerprint: "BB", NotAfter: yesterday},
			},
			active:  "CC",
			deleted: []string{"BB"},
		},
		{
			name: "Entries without an expiration are never deleted",
			entries: []store.Entry{
				{Fingerprint: "AA"},
				{Fingerprint: "BB"},
			},
			active:  "CC",
			deleted: nil,
		},
		{
			name: "The active fingerprint is never deleted regardless of expiration",
			entries: []store.Entry{
				{Fingerprint: "AA", NotAfter: yesterday},
			},
			active:  "AA",
			deleted: nil,
		},
		{
			name: "The active fingerprint is retained regardless of casing",
			entries: []store.Entry{
				{Fingerprint: "AA", NotAfter: yesterday},
				{Fingerprint: "CC", NotAfter: yesterday},
			},
			active:  "cc",
			deleted: []string{"AA"},
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("Testing %s", tc.name), func(t *testing.T) {
			certStore := &fakeStore{entries: tc.entries}
			srv, _ := testService(certStore)

			report, err := srv.Clean(context.Background(), tc.active)
			if err != nil {
				t.Fatalf("Clean returned unexpected error: %s", err)
			}
			if report.Examined != len(tc.entries) {
				t.Errorf("Got examined count %d; want %d", report.Examined, len(tc.entries))
			}
			if len(certStore.deleted) != len(tc.deleted) {
				t.Fatalf("Got deleted %v; want %v", certStore.deleted, tc.deleted)
			}
			for i, fp := range tc.deleted {
				if certStore.deleted[i] != fp {
					t.Errorf("Got deleted %v; want %v", certStore.deleted, tc.deleted)
				}
			}
			if report.Failed != tc.failed {
				t.Errorf("Got failed count %d; want %d", report.Failed, tc.failed)
			}
		})
	}
}

func TestCleanContinuesAfterDeletionFailure(t *testing.T) {
	certStore := &fakeStore{
		entries: []store.Entry{
			{Fingerprint: "AA", NotAfter: ts(5000)},
			{Fingerprint: "BB", NotAfter: ts(5000)},
			{Fingerprint: "CC", NotAfter: ts(5000)},
		},
		failDelete: map[string]bool{"BB": true},
	}
	srv, _ := testService(certStore)

	report, err := srv.Clean(context.Background(), "none")
	if err != nil {
		t.Fatalf("Clean returned unexpected error: %s", err)
	}
	if report.Deleted != 2 || report.Failed != 1 {
		t.Errorf("Got report %+v; want 2 deleted and 1 failed", report)
	}
	if len(certStore.deleted) != 2 {
		t.Errorf("Got deletions %v; want AA and CC despite the BB failure", certStore.deleted)
	}
}

func TestCleanEmptyStoreIsAnAnomaly(t *testing.T) {
	srv, _ := testService(&fakeStore{})
	_, err := srv.Clean(context.Background(), "AA")
	if err != ErrEmptyStore {
		t.Errorf("Got error %v; want %v", err, ErrEmptyStore)
	}
}

func TestCleanListFailure(t *testing.T) {
	listErr := errors.New("store listing failed")
	srv, _ := testService(&fakeStore{listErr: listErr})
	_, err := srv.Clean(context.Background(), "AA")
	if err != listErr {
		t.Errorf("Got error %v; want %v", err, listErr)
	}
}

func TestInstallOutcomes(t *testing.T) {
	testCases := []struct {
		name    string
		outcome store.ImportOutcome
		err     error
	}{
		{"Newly added certificate", store.Added, nil},
		{"Certificate already in store", store.AlreadyPresent, nil},
		{"Unrecognized import output", store.ImportFailed, errors.New("unrecognized certificate import output")},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("Testing %s", tc.name), func(t *testing.T) {
			srv, _ := testService(&fakeStore{importOutcome: tc.outcome, importErr: tc.err})
			outcome, err := srv.Install(context.Background(), "server.pfx")
			if outcome != tc.outcome {
				t.Errorf("Got outcome %s; want %s", outcome, tc.outcome)
			}
			if (err != nil) != (tc.err != nil) {
				t.Errorf("Got error %v; want %v", err, tc.err)
			}
		})
	}
}

func TestBind(t *testing.T) {
	srv, binder := testService(&fakeStore{})
	if err := srv.Bind(context.Background(), "AA"); err != nil {
		t.Fatalf("Bind returned unexpected error: %s", err)
	}
	if binder.bound != "AA" {
		t.Errorf("Got bound fingerprint %s; want AA", binder.bound)
	}
}
