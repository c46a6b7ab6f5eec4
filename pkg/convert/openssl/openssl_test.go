package openssl

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/go-kit/kit/log"
)

func testConverter(run runner) *opensslConverter {
	return &opensslConverter{opensslPath: "openssl", run: run, logger: log.NewNopLogger()}
}

func TestToPKCS12(t *testing.T) {
	dir := t.TempDir()
	pfxPath := filepath.Join(dir, "server.pfx")

	srv := testConverter(func(ctx context.Context, name string, args ...string) (string, error) {
		if err := ioutil.WriteFile(pfxPath, []byte("pfx"), 0600); err != nil {
			t.Fatal("Unable to write converted file")
		}
		return "", nil
	})

	err := srv.ToPKCS12(context.Background(), "server.crt", "server.key", pfxPath)
	if err != nil {
		t.Fatalf("ToPKCS12 returned unexpected error: %s", err)
	}
}

func TestToPKCS12MissingOutputFile(t *testing.T) {
	pfxPath := filepath.Join(t.TempDir(), "server.pfx")

	srv := testConverter(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", nil
	})

	if err := srv.ToPKCS12(context.Background(), "server.crt", "server.key", pfxPath); err == nil {
		t.Error("ToPKCS12 should fail when the command exits cleanly but the converted file is absent")
	}
}

func TestToPKCS12CommandFailure(t *testing.T) {
	pfxPath := filepath.Join(t.TempDir(), "server.pfx")

	srv := testConverter(func(ctx context.Context, name string, args ...string) (string, error) {
		return "unable to load private key", errors.New("exit status 1")
	})

	if err := srv.ToPKCS12(context.Background(), "server.crt", "server.key", pfxPath); err == nil {
		t.Error("ToPKCS12 should fail when the command exits nonzero")
	}
}
