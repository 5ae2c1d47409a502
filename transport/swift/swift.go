// Package swift models the Swift/Keystone collaborator spec.md §1 and §6
// describe as external to this library's core: something that resolves a
// swift://container/object name to an HTTP URL plus an auth header. A
// real Keystone client is explicitly out of scope; TokenSource is the
// interface the dispatcher needs, grounded directly on
// _examples/rclone-rclone/backend/swift/auth.go's pattern of wrapping a parent authenticator to
// override just the storage URL and token rather than reimplementing the
// auth flow.
package swift

import (
	"net/http"

	"github.com/pkg/errors"
)

// TokenSource resolves a swift://container/object reference to the
// concrete URL and headers an HTTP GET should use (spec.md §6: "resolve
// via the Swift collaborator to an HTTP URL plus an X-Auth-Token:
// <token> header").
type TokenSource interface {
	ResolveURL(container, object string) (url string, headers http.Header, err error)
}

// Fixed is a TokenSource built from one fixed storage URL and token,
// the same override shape _examples/rclone-rclone/backend/swift/auth.go uses when a parent
// Authenticator is nil and fixed values substitute for it. It exists for
// tests and for callers that have already performed Keystone auth
// out-of-band and just want to hand this library the result.
type Fixed struct {
	StorageURL string
	AuthToken  string
}

// ResolveURL joins container and object onto the fixed storage URL and
// returns the fixed token as an X-Auth-Token header (omitted when the
// token is empty). It performs no Keystone request.
func (f Fixed) ResolveURL(container, object string) (string, http.Header, error) {
	if f.StorageURL == "" {
		return "", nil, errors.New("swift: invalid storage URL")
	}
	h := make(http.Header)
	if f.AuthToken != "" {
		h.Set("X-Auth-Token", f.AuthToken)
	}
	return f.StorageURL + "/" + container + "/" + object, h, nil
}
