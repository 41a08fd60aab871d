package domain

// Kind classifies a domain error so the transport layer can map it onto the
// response envelope without inspecting messages.
type Kind int

const (
	KindMissingKey Kind = iota
	KindInvalidKey
	KindUnauthenticated
	KindNotFound
	KindForbidden
	KindValidation
	KindInvalidAction
	KindPersistence
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func MissingKey() *Error {
	return &Error{Kind: KindMissingKey, Message: "No server key."}
}

func InvalidKey() *Error {
	return &Error{Kind: KindInvalidKey, Message: "Invalid server key."}
}

func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "Not authorized."}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func InvalidAction(msg string) *Error {
	return &Error{Kind: KindInvalidAction, Message: msg}
}

// Persistence wraps a store failure so callers can still unwrap the cause.
func Persistence(msg string, cause error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, cause: cause}
}
