package token

// Secrets provides the authorization token for the remote certificate
// server.
type Secrets interface {
	GetToken() (string, error)
}
