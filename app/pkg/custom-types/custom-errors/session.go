package customerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSession is the only fatal kind: the messaging identity of an account
	// was revoked, deactivated or is no longer authorized.
	ErrInvalidSession = errors.New("invalid session")

	// ErrNoWebData is returned when a token acquisition did not produce any auth data.
	ErrNoWebData = errors.New("no web app data acquired")

	ErrLoginRejected      = errors.New("login rejected by backend")
	ErrStatusUnauthorized = errors.New("status fetch unauthorized")
	ErrMalformedResponse  = errors.New("malformed backend response")
)

// SessionError binds an error to the account identity it happened on.
type SessionError struct {
	Session string
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s | %v", e.Session, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewSessionError(session string, err error) error {
	if err == nil {
		return nil
	}
	return &SessionError{Session: session, Err: err}
}

// IsFatal reports whether err must terminate the worker that produced it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidSession)
}
