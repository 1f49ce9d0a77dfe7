package ports

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/bnema/pacer/internal/domain"
)

type Credentials struct {
	Username string
	Secret   string
}

type LoginResult struct {
	Authenticated bool
	UserID        string
	Username      string
}

type IdentitySummary struct {
	UserID         string
	Username       string
	FullName       string
	FollowerCount  int64
	FollowingCount int64
	MediaCount     int64
}

type Request struct {
	Method string
	Path   string
	Params url.Values
	Body   any
}

type Response struct {
	StatusCode int
	Body       json.RawMessage
}

func (r Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("response body is empty")
	}

	return json.Unmarshal(r.Body, v)
}

// PlatformClient is the wrapped platform API. Implementations signal
// throttling with domain.ErrRateLimited, dead sessions with
// domain.ErrAuthRejected and bad credentials with
// domain.ErrAuthenticationFailure.
type PlatformClient interface {
	Login(ctx context.Context, credentials Credentials, device domain.DeviceIdentifiers) (LoginResult, error)
	ExportState(ctx context.Context) ([]byte, error)
	ImportState(ctx context.Context, blob []byte) error
	IdentityProbe(ctx context.Context) (IdentitySummary, error)
	ExecuteRequest(ctx context.Context, request Request) (Response, error)
}
