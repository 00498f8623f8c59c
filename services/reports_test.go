package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esa0624/CU-Blueboard/models"
)

func TestReportPreconditions(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	reporter := createUser(t, db, "reporter@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Reported post")

	// Authors cannot report themselves.
	assert.ErrorIs(t, svc.Report(author, post, models.ReasonSpam), ErrSelfReport)

	// Unknown reasons are rejected.
	assert.ErrorIs(t, svc.Report(reporter, post, "bogus"), ErrInvalidReason)

	require.NoError(t, svc.Report(reporter, post, models.ReasonSpam))

	// One report per (user, post).
	assert.ErrorIs(t, svc.Report(reporter, post, models.ReasonSpam), ErrDuplicateReport)
}

func TestReportUpdatesCounterAndFlags(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Reported post")

	for i := 0; i < 2; i++ {
		reporter := createUser(t, db, fmt.Sprintf("reporter%d@columbia.edu", i), models.RoleStudent)
		require.NoError(t, svc.Report(reporter, post, models.ReasonHarassment))
	}

	assert.Equal(t, 2, post.ReportsCount)
	assert.True(t, post.Reported)
	assert.Equal(t, "2 report(s)", post.ReportedReason)
	assert.NotNil(t, post.ReportedAt)
	assert.False(t, svc.NeedsUrgentReview(post))

	reporter := createUser(t, db, "reporter2@columbia.edu", models.RoleStudent)
	require.NoError(t, svc.Report(reporter, post, models.ReasonOther))
	assert.Equal(t, 3, post.ReportsCount)
	assert.True(t, svc.NeedsUrgentReview(post))
}

func TestDismissByModeratorClearsEverything(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	moderator := createUser(t, db, "mod@columbia.edu", models.RoleModerator)
	post := createPost(t, db, author, "Reported post")

	for i := 0; i < 3; i++ {
		reporter := createUser(t, db, fmt.Sprintf("reporter%d@columbia.edu", i), models.RoleStudent)
		require.NoError(t, svc.Report(reporter, post, models.ReasonSpam))
	}

	require.NoError(t, svc.Dismiss(moderator, post))

	assert.Equal(t, 0, post.ReportsCount)
	assert.False(t, post.Reported)
	assert.Empty(t, post.ReportedReason)
	assert.Nil(t, post.ReportedAt)

	var remaining int64
	require.NoError(t, db.Model(&models.PostReport{}).Where("post_id = ?", post.ID).Count(&remaining).Error)
	assert.EqualValues(t, 0, remaining)
}

func TestDismissOwnReport(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	first := createUser(t, db, "first@columbia.edu", models.RoleStudent)
	second := createUser(t, db, "second@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Reported post")

	require.NoError(t, svc.Report(first, post, models.ReasonSpam))
	require.NoError(t, svc.Report(second, post, models.ReasonSpam))

	require.NoError(t, svc.Dismiss(first, post))

	// The other report survives and the summary reflects the live count.
	assert.Equal(t, 1, post.ReportsCount)
	assert.True(t, post.Reported)
	assert.Equal(t, "1 report(s)", post.ReportedReason)

	// Withdrawing the last report clears the flags.
	require.NoError(t, svc.Dismiss(second, post))
	assert.Equal(t, 0, post.ReportsCount)
	assert.False(t, post.Reported)
	assert.Empty(t, post.ReportedReason)
}

func TestDismissWithoutOwnReport(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	bystander := createUser(t, db, "bystander@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Clean post")

	assert.ErrorIs(t, svc.Dismiss(bystander, post), ErrReportNotFound)
}

func TestValidReportReasons(t *testing.T) {
	for _, reason := range models.ReportReasons {
		assert.True(t, models.ValidReportReason(reason), reason)
	}
	assert.False(t, models.ValidReportReason(""))
	assert.False(t, models.ValidReportReason("Spam")) // case sensitive taxonomy
}
