package ledger

import "errors"

// Record is the persisted identity of the certificate currently exported to
// disk and expected to be bound to RDS. At most one record is active at a
// time; only the exporter writes it.
type Record struct {
	Domain      string `json:"domain"`
	ValidFrom   int64  `json:"valid_from"`
	ValidTo     int64  `json:"valid_to"`
	Fingerprint string `json:"fingerprint"`
}

var (
	// ErrNotFound means no record has ever been written.
	ErrNotFound = errors.New("certificate record not found")
	// ErrCorrupt means a record exists but cannot be parsed.
	ErrCorrupt = errors.New("certificate record is corrupt")
)

type Ledger interface {
	Get() (*Record, error)
	Put(Record) error
}
