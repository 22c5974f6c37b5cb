package story

// Error is a domain error carrying a stable code for structured logging.
type Error struct {
	code string
	text string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.text }

// Code returns the stable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrChapterNotFound indicates an unknown chapter identifier.
	ErrChapterNotFound = &Error{code: "CHAPTER_NOT_FOUND", text: "story: chapter not found"}
	// ErrNoSession indicates the user has no active narrative session.
	ErrNoSession = &Error{code: "NO_SESSION", text: "story: no active session"}
	// ErrInvalidOption indicates an option index outside the part's option list.
	ErrInvalidOption = &Error{code: "INVALID_OPTION", text: "story: option index out of range"}
	// ErrInvalidEvent indicates an event that does not match the current part kind.
	ErrInvalidEvent = &Error{code: "INVALID_EVENT", text: "story: event does not match current part"}
	// ErrStaleEvent indicates a callback referencing a part the session has moved past.
	ErrStaleEvent = &Error{code: "STALE_EVENT", text: "story: event references a stale part"}
)
