package rds

import "context"

// Binder sets the certificate Remote Desktop Services presents to clients,
// keyed by SHA-1 fingerprint.
type Binder interface {
	SetCertificate(ctx context.Context, fingerprint string) error
}
