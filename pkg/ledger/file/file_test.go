package file

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/certops/rdscert/pkg/ledger"

	"github.com/go-kit/kit/log"
)

func TestGetMissingFile(t *testing.T) {
	l := NewFile(filepath.Join(t.TempDir(), "metadata.json"), log.NewNopLogger())
	_, err := l.Get()
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Got error %v; want %v", err, ledger.ErrNotFound)
	}
}

func TestGetCorruptFile(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"Invalid JSON", "{not json"},
		{"Missing fingerprint", `{"domain":"rds.example.com","valid_to":2000}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "metadata.json")
			if err := ioutil.WriteFile(path, []byte(tc.content), 0600); err != nil {
				t.Fatal("Unable to write metadata file")
			}
			l := NewFile(path, log.NewNopLogger())
			_, err := l.Get()
			if !errors.Is(err, ledger.ErrCorrupt) {
				t.Errorf("Got error %v; want %v", err, ledger.ErrCorrupt)
			}
		})
	}
}

func TestPutThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	l := NewFile(path, log.NewNopLogger())

	rec := ledger.Record{
		Domain:      "rds.example.com",
		ValidFrom:   1000,
		ValidTo:     2000,
		Fingerprint: "AA11BB22",
	}
	if err := l.Put(rec); err != nil {
		t.Fatalf("Put returned unexpected error: %s", err)
	}

	got, err := l.Get()
	if err != nil {
		t.Fatalf("Get returned unexpected error: %s", err)
	}
	if *got != rec {
		t.Errorf("Got record %+v; want %+v", got, rec)
	}
}
