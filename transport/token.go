package transport

import (
	"context"
	"os"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// TokenSource supplies the bearer token attached to each request.
// An empty token sends the request without an Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// FileToken reads the persisted token on every request, so a token written by a
// login flow is picked up without rebuilding the client. A missing file means
// no token.
type FileToken struct {
	Path string
}

func (t FileToken) Token(context.Context) (string, error) {
	if t.Path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(t.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "read token file")
	}
	return strings.TrimSpace(string(raw)), nil
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
