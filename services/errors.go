package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Precondition errors surfaced to callers. Controllers translate these into
// user-visible messages; they are never logged as system failures.
var (
	ErrNotModerator          = errors.New("moderator privileges required")
	ErrNotAuthor             = errors.New("only the author may perform this action")
	ErrSelfReport            = errors.New("you cannot report your own post")
	ErrDuplicateReport       = errors.New("you have already reported this post")
	ErrInvalidReason         = errors.New("invalid report reason")
	ErrReportNotFound        = errors.New("you have not reported this post")
	ErrInvalidRedactionState = errors.New("invalid redaction state")
	ErrNotRedacted           = errors.New("content is not redacted")
	ErrThreadLocked          = errors.New("thread is locked")
	ErrAnswerMismatch        = errors.New("accepted answer must belong to this post")
	ErrNotUnlockable         = errors.New("no accepted answer to unlock")
	ErrNotFlagged            = errors.New("post is not flagged")
	ErrAlreadyBookmarked     = errors.New("post already bookmarked")
	ErrBookmarkNotFound      = errors.New("bookmark not found")
)

// ValidationError reports bad input on a specific field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Msg
}

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// isDuplicateKey reports whether err is a unique-constraint violation. The
// store-level constraint is the concurrency mechanism for votes, reports,
// bookmarks and identities, so these conflicts mean "already exists", not
// failure.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
