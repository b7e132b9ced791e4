package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateIdentity = errors.New("username or email already registered")

	// Every error below is an authentication failure. Callers outside the
	// service must surface all of them as the same unauthorized response.
	ErrBadCredentials    = errors.New("incorrect username or password")
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrUnknownSubject    = errors.New("token subject not found")
)

var authKinds = []struct {
	err  error
	kind string
}{
	{ErrBadCredentials, "bad_credentials"},
	{ErrMissingCredential, "missing_credential"},
	{ErrInvalidToken, "invalid_token"},
	{ErrTokenExpired, "token_expired"},
	{ErrUnknownSubject, "unknown_subject"},
}

// AuthFailureKind names the authentication failure in err for logs and
// metrics. ok is false when err is not an authentication failure.
func AuthFailureKind(err error) (kind string, ok bool) {
	for _, k := range authKinds {
		if errors.Is(err, k.err) {
			return k.kind, true
		}
	}
	return "", false
}

func IsUnauthorized(err error) bool {
	_, ok := AuthFailureKind(err)
	return ok
}
