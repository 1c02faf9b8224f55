package auth

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies why the pipeline rejected a request.
type Kind int

const (
	KindNoCredential Kind = iota + 1
	KindInvalidCredential
	KindExpiredCredential
	KindVerificationUnknown
	KindPrincipalNotFound
	KindPrincipalInactive
	KindForbidden
)

var kindInfo = map[Kind]struct {
	name    string
	status  int
	message string
}{
	KindNoCredential:        {"no_credential", http.StatusUnauthorized, "You are not logged in. Please log in to get access."},
	KindInvalidCredential:   {"invalid_credential", http.StatusUnauthorized, "Invalid token. Please log in again."},
	KindExpiredCredential:   {"expired_credential", http.StatusUnauthorized, "Your token has expired. Please log in again."},
	KindVerificationUnknown: {"verification_unknown", http.StatusUnauthorized, "Could not verify your credentials. Please log in again."},
	KindPrincipalNotFound:   {"principal_not_found", http.StatusUnauthorized, "The user belonging to this token no longer exists."},
	KindPrincipalInactive:   {"principal_inactive", http.StatusForbidden, "This account has been deactivated."},
	KindForbidden:           {"forbidden", http.StatusForbidden, "You do not have permission to perform this action."},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status is the HTTP status code the kind maps to.
func (k Kind) Status() int {
	if info, ok := kindInfo[k]; ok {
		return info.status
	}
	return http.StatusUnauthorized
}

// Message is the client-facing text of the kind.
func (k Kind) Message() string {
	if info, ok := kindInfo[k]; ok {
		return info.message
	}
	return kindInfo[KindVerificationUnknown].message
}

// Error is the single error type produced by the pipeline. Err holds the
// underlying cause, if any; it is never shown to clients.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Kind.Status() }

func (e *Error) Message() string { return e.Kind.Message() }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNoCredential        = &Error{Kind: KindNoCredential}
	ErrInvalidCredential   = &Error{Kind: KindInvalidCredential}
	ErrExpiredCredential   = &Error{Kind: KindExpiredCredential}
	ErrVerificationUnknown = &Error{Kind: KindVerificationUnknown}
	ErrPrincipalNotFound   = &Error{Kind: KindPrincipalNotFound}
	ErrPrincipalInactive   = &Error{Kind: KindPrincipalInactive}
	ErrForbidden           = &Error{Kind: KindForbidden}
)

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// asError normalizes err into an *Error. Anything that is not already one is
// an unclassified verification failure.
func asError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return newError(KindVerificationUnknown, err)
}

// Stage is the furthest point a request reached in the pipeline.
type Stage int

const (
	StageUnauthenticated Stage = iota
	StageTokenExtracted
	StageTokenVerified
	StagePrincipalResolved
	StageAuthorized
	StageDispatched
)

func (s Stage) String() string {
	switch s {
	case StageUnauthenticated:
		return "unauthenticated"
	case StageTokenExtracted:
		return "token_extracted"
	case StageTokenVerified:
		return "token_verified"
	case StagePrincipalResolved:
		return "principal_resolved"
	case StageAuthorized:
		return "authorized"
	case StageDispatched:
		return "dispatched"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}
