package mailbox

import "context"

// CredentialProvider hands out an access token for the signed-in account.
// It returns auth.ErrAuthenticationRequired when no usable session exists.
type CredentialProvider interface {
	Acquire(ctx context.Context) (string, error)
}

// FolderResolver maps a user-facing folder name to a provider endpoint.
type FolderResolver interface {
	Resolve(ctx context.Context, token, folder string) (string, error)
}

// Fetcher runs one logical query, following pages until maxItems messages
// are collected or the provider has nothing more to return.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		token string,
		method string,
		endpoint string,
		params Params,
		maxItems int,
	) (Result, error)
}
