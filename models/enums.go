package models

// Role ranks a user. Ranks are ordered so privilege checks are a simple
// comparison.
type Role int

const (
	RoleStudent Role = iota
	RoleModerator
	RoleStaff
	RoleAdmin
)

// CanModerate reports whether the role carries moderation privileges.
func (r Role) CanModerate() bool {
	return r >= RoleModerator
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleModerator:
		return "moderator"
	case RoleStaff:
		return "staff"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// PostStatus is the lifecycle state of a thread.
type PostStatus string

const (
	PostStatusOpen   PostStatus = "open"
	PostStatusSolved PostStatus = "solved"
	PostStatusLocked PostStatus = "locked"
)

// RedactionState tracks whether content has been hidden by moderators.
type RedactionState string

const (
	RedactionVisible  RedactionState = "visible"
	RedactionPartial  RedactionState = "partial"
	RedactionRedacted RedactionState = "redacted"
)

// Vote polarities. A vote row holds exactly one of these.
const (
	Upvote   = 1
	Downvote = -1
)

// Schools whose students may participate.
const (
	SchoolColumbia = "Columbia"
	SchoolBarnard  = "Barnard"
)

// Schools lists the valid values for Post.School.
var Schools = []string{SchoolColumbia, SchoolBarnard}
