package http

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated means the request carried no resolvable user identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves an inbound request to a stable user id.
type Authenticator interface {
	Resolve(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts the X-User-ID header injected by the auth
// gateway in front of this service.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Resolve(r *http.Request) (string, error) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}
