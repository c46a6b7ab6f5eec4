package store

import (
	"context"
	"time"
)

// Entry is one certificate enumerated from the OS store. NotAfter is nil
// for entries that carry no expiration field; those are never eligible for
// expiry-based deletion.
type Entry struct {
	Fingerprint string
	CommonName  string
	NotAfter    *time.Time
}

// ImportOutcome classifies the result of importing a container into the
// store. Both Added and AlreadyPresent let the install pipeline continue.
type ImportOutcome int

const (
	ImportFailed ImportOutcome = iota
	Added
	AlreadyPresent
)

func (o ImportOutcome) String() string {
	switch o {
	case Added:
		return "added"
	case AlreadyPresent:
		return "already present"
	default:
		return "failed"
	}
}

type Store interface {
	Import(ctx context.Context, pfxPath string) (ImportOutcome, error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, fingerprint string) error
}
