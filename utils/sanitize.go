package utils

import "github.com/microcosm-cc/bluemonday"

// ugcPolicy strips scripts and event handlers from user generated content
// while keeping basic formatting markup.
var ugcPolicy = bluemonday.UGCPolicy()

// Sanitize removes unsafe HTML from user supplied text.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}
