package ports

import "context"

// CredentialSource yields the account's login credentials on demand so the
// secret is only read when a fresh login actually happens.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}
