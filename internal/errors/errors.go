package errors

type ErrorType string

const (
	ErrorTypeInvalidKey         ErrorType = "INVALID_KEY"
	ErrorTypeAlreadyExists      ErrorType = "ALREADY_EXISTS"
	ErrorTypeNotFound           ErrorType = "NOT_FOUND"
	ErrorTypeVersionNotFound    ErrorType = "VERSION_NOT_FOUND"
	ErrorTypeSourceFileNotFound ErrorType = "SOURCE_FILE_NOT_FOUND"
	ErrorTypeNoContent          ErrorType = "NO_CONTENT"
	ErrorTypeSchemaMismatch     ErrorType = "SCHEMA_MISMATCH"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Kind returns the domain error type of err, or "" when err is not a
// domain error. Callers branch on this, never on message text.
func Kind(err error) ErrorType {
	if e, ok := err.(*Error); ok {
		return e.Type
	}
	return ""
}

// IsDomain reports whether err carries a domain error kind.
func IsDomain(err error) bool {
	_, ok := err.(*Error)
	return ok
}

func InvalidKey(message string) *Error {
	return &Error{Type: ErrorTypeInvalidKey, Message: message}
}

func AlreadyExists(message string) *Error {
	return &Error{Type: ErrorTypeAlreadyExists, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: message}
}

func VersionNotFound(message string) *Error {
	return &Error{Type: ErrorTypeVersionNotFound, Message: message}
}

func SourceFileNotFound(message string) *Error {
	return &Error{Type: ErrorTypeSourceFileNotFound, Message: message}
}

func NoContent(message string) *Error {
	return &Error{Type: ErrorTypeNoContent, Message: message}
}

func SchemaMismatch(message string) *Error {
	return &Error{Type: ErrorTypeSchemaMismatch, Message: message}
}
