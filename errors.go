package synology

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn is returned by every Session call made before a successful
// Login or after Logout.
var ErrNotLoggedIn = errors.New("not logged in: call Login first")

// APIError is a DSM reply with success=false.
type APIError struct {
	API    string
	Method string
	Code   int
}

func (e *APIError) Error() string {
	if desc := e.Description(); desc != "" {
		return fmt.Sprintf("%s %s failed with error code %d (%s)", e.API, e.Method, e.Code, desc)
	}
	return fmt.Sprintf("%s %s failed with error code %d", e.API, e.Method, e.Code)
}

// Description returns DSM's documented meaning of the code, or "" when unknown.
func (e *APIError) Description() string {
	if e.API == apiAuth {
		if d, ok := authErrorCodes[e.Code]; ok {
			return d
		}
	}
	return commonErrorCodes[e.Code]
}

// IsAuthError reports whether err is a DSM rejection of the credentials or the sid.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.API == apiAuth {
		return true
	}
	switch apiErr.Code {
	case 105, 106, 107, 119:
		return true
	}
	return false
}

var commonErrorCodes = map[int]string{
	0:   "no error code returned",
	100: "unknown error",
	101: "invalid parameter",
	102: "requested API does not exist",
	103: "requested method does not exist",
	104: "requested version does not support the functionality",
	105: "logged in session does not have permission",
	106: "session timeout",
	107: "session interrupted by duplicate login",
	119: "SID not found",
}

var authErrorCodes = map[int]string{
	400: "no such account or incorrect password",
	401: "account disabled",
	402: "permission denied",
	403: "2-step verification code required",
	404: "failed to authenticate 2-step verification code",
}
