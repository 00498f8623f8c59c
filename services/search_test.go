package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esa0624/CU-Blueboard/models"
)

func postTitles(posts []models.Post) []string {
	titles := make([]string, 0, len(posts))
	for _, p := range posts {
		titles = append(titles, p.Title)
	}
	return titles
}

func TestSearchFlagVisibility(t *testing.T) {
	db := newTestDB(t)
	svc := NewSearchService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	other := createUser(t, db, "other@columbia.edu", models.RoleStudent)
	moderator := createUser(t, db, "mod@columbia.edu", models.RoleModerator)

	clean := createPost(t, db, author, "Clean post")
	flagged := createPost(t, db, author, "Flagged post")
	require.NoError(t, db.Model(flagged).UpdateColumn("ai_flagged", true).Error)
	_ = clean

	// Guests see only unflagged content.
	posts, err := svc.Search(SearchFilters{}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Clean post"}, postTitles(posts))

	// Other users likewise.
	posts, err = svc.Search(SearchFilters{}, other)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Clean post"}, postTitles(posts))

	// The author sees their own flagged post.
	posts, err = svc.Search(SearchFilters{}, author)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Clean post", "Flagged post"}, postTitles(posts))

	// Moderators see everything.
	posts, err = svc.Search(SearchFilters{}, moderator)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Clean post", "Flagged post"}, postTitles(posts))
}

func TestSearchExcludesExpired(t *testing.T) {
	db := newTestDB(t)
	svc := NewSearchService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	live := createPost(t, db, author, "Live post")
	expired := createPost(t, db, author, "Expired post")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(expired).UpdateColumn("expires_at", past).Error)
	future := time.Now().Add(24 * time.Hour)
	require.NoError(t, db.Model(live).UpdateColumn("expires_at", future).Error)

	posts, err := svc.Search(SearchFilters{}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Live post"}, postTitles(posts))
}

func TestSearchTextAndFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewSearchService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	housing := createPost(t, db, author, "Housing lottery question")
	require.NoError(t, db.Model(housing).UpdateColumn("course_code", "").Error)
	dining := createPost(t, db, author, "Dining hall hours")
	require.NoError(t, db.Model(dining).Updates(map[string]any{
		"school":      models.SchoolBarnard,
		"course_code": "COMS1004",
	}).Error)

	posts, err := svc.Search(SearchFilters{Query: "housing"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Housing lottery question"}, postTitles(posts))

	posts, err = svc.Search(SearchFilters{School: models.SchoolBarnard}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Dining hall hours"}, postTitles(posts))

	posts, err = svc.Search(SearchFilters{CourseCode: "COMS1004"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Dining hall hours"}, postTitles(posts))

	posts, err = svc.Search(SearchFilters{Query: "no such thing"}, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSearchByTagsRequiresAll(t *testing.T) {
	db := newTestDB(t)
	svc := NewSearchService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	question := createTag(t, db, "Question")
	advice := createTag(t, db, "Advice")

	both := createPost(t, db, author, "Tagged with both")
	require.NoError(t, db.Model(both).Association("Tags").Append(question, advice))
	one := createPost(t, db, author, "Tagged with one")
	require.NoError(t, db.Model(one).Association("Tags").Append(question))

	posts, err := svc.Search(SearchFilters{TagIDs: []uint{question.ID}}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Tagged with both", "Tagged with one"}, postTitles(posts))

	posts, err = svc.Search(SearchFilters{TagIDs: []uint{question.ID, advice.ID}}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Tagged with both"}, postTitles(posts))
}

func TestSearchTimeframe(t *testing.T) {
	db := newTestDB(t)
	svc := NewSearchService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	recent := createPost(t, db, author, "Recent post")
	_ = recent
	old := createPost(t, db, author, "Old post")
	lastMonth := time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, db.Model(old).UpdateColumn("created_at", lastMonth).Error)

	posts, err := svc.Search(SearchFilters{Timeframe: "7d"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Recent post"}, postTitles(posts))

	// Unknown timeframe means no time filter.
	posts, err = svc.Search(SearchFilters{Timeframe: "whenever"}, nil)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestSearchScopes(t *testing.T) {
	db := newTestDB(t)
	svc := NewSearchService(db)

	alice := createUser(t, db, "alice@columbia.edu", models.RoleStudent)
	bob := createUser(t, db, "bob@columbia.edu", models.RoleStudent)
	mine := createPost(t, db, alice, "Alice's question")
	createPost(t, db, bob, "Bob's question")

	posts, err := svc.Search(SearchFilters{AuthorID: alice.ID}, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice's question"}, postTitles(posts))

	posts, err = svc.Search(SearchFilters{PostIDs: []uint{mine.ID}}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice's question"}, postTitles(posts))

	// An explicit empty set returns nothing, not everything.
	posts, err = svc.Search(SearchFilters{PostIDs: []uint{}}, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestDuplicateFinder(t *testing.T) {
	db := newTestDB(t)
	finder := NewDuplicateFinder(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	existing := createPost(t, db, author, "Housing lottery timeline")
	createPost(t, db, author, "Unrelated dining question")

	posts, err := finder.Find("housing lottery", "", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Housing lottery timeline"}, postTitles(posts))

	// The draft being edited is excluded from its own matches.
	posts, err = finder.Find("Housing lottery timeline", "", existing.ID)
	require.NoError(t, err)
	assert.Empty(t, posts)

	// No terms, no matches.
	posts, err = finder.Find("", "", 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestDashboardStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewDashboardService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	answerer := createUser(t, db, "answerer@columbia.edu", models.RoleStudent)

	solved := createPost(t, db, author, "Solved thread")
	createAnswer(t, db, solved, answerer, "the fix")
	require.NoError(t, db.Model(solved).UpdateColumn("status", models.PostStatusSolved).Error)

	createPost(t, db, author, "Unanswered thread")

	flagged := createPost(t, db, author, "Flagged thread")
	require.NoError(t, db.Model(flagged).UpdateColumn("ai_flagged", true).Error)

	stats, err := svc.Stats()
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalPosts)
	assert.EqualValues(t, 1, stats.TotalAnswers)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.AIFlaggedPosts)
	assert.EqualValues(t, 0, stats.RedactedPosts)
	assert.InDelta(t, 33.3, stats.ResponseRate, 0.11)
	assert.InDelta(t, 33.3, stats.ResolutionRate, 0.11)
	assert.NotEmpty(t, stats.TopicCounts)
}
