package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// fakeQueue records screening dispatches.
type fakeQueue struct {
	enqueued []uint
	err      error
}

func (q *fakeQueue) EnqueueScreening(ctx context.Context, postID uint) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, postID)
	return nil
}

func newPostFixture(t *testing.T, db *gorm.DB) (*models.User, *models.Topic, *models.Tag) {
	t.Helper()
	user := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	topic := createTopic(t, db, "Academics")
	tag := createTag(t, db, "Question")
	return user, topic, tag
}

func TestCreatePostAssignsIdentityAndEnqueues(t *testing.T) {
	db := newTestDB(t)
	queue := &fakeQueue{}
	svc := NewPostService(db, queue, NewIdentityService(db), testLogger())
	user, topic, tag := newPostFixture(t, db)

	post, err := svc.Create(user, PostInput{
		Title:   "How do I register for classes?",
		Body:    "I cannot find the registration portal.",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	})
	require.NoError(t, err)
	require.NotZero(t, post.ID)

	var identity models.ThreadIdentity
	require.NoError(t, db.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&identity).Error)
	assert.NotEmpty(t, identity.Pseudonym)

	assert.Equal(t, []uint{post.ID}, queue.enqueued)
}

func TestCreatePostSurvivesQueueFailure(t *testing.T) {
	db := newTestDB(t)
	queue := &fakeQueue{err: errors.New("redis down")}
	svc := NewPostService(db, queue, NewIdentityService(db), testLogger())
	user, topic, tag := newPostFixture(t, db)

	post, err := svc.Create(user, PostInput{
		Title:   "Queue is down",
		Body:    "Posting should still work.",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	})
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
}

func TestCreatePostValidations(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())
	user, topic, tag := newPostFixture(t, db)

	base := PostInput{
		Title:   "Valid title",
		Body:    "Valid body",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	}

	cases := []struct {
		name   string
		mutate func(*PostInput)
		msg    string
	}{
		{"blank title", func(in *PostInput) { in.Title = "  " }, "title can't be blank"},
		{"blank body", func(in *PostInput) { in.Body = "" }, "body can't be blank"},
		{"unknown topic", func(in *PostInput) { in.TopicID = 999 }, "topic can't be blank"},
		{"bad school", func(in *PostInput) { in.School = "NYU" }, "school is not included in the list"},
		{"no tags", func(in *PostInput) { in.TagIDs = nil }, "tags must include at least one tag"},
		{"too many tags", func(in *PostInput) {
			in.TagIDs = []uint{tag.ID, tag.ID, tag.ID, tag.ID, tag.ID, tag.ID}
		}, "tags cannot include more than 5 tags"},
		{"expiry too soon", func(in *PostInput) { in.ExpiresInDays = 3 }, "expires_at must be between 7 and 30 days from now"},
		{"expiry too late", func(in *PostInput) { in.ExpiresInDays = 45 }, "expires_at must be between 7 and 30 days from now"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := svc.Create(user, in)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestCreatePostExpiryWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())
	user, topic, tag := newPostFixture(t, db)

	post, err := svc.Create(user, PostInput{
		Title:         "Expiring post",
		Body:          "This one goes away.",
		TopicID:       topic.ID,
		School:        models.SchoolBarnard,
		TagIDs:        []uint{tag.ID},
		ExpiresInDays: 7,
	})
	require.NoError(t, err)
	require.NotNil(t, post.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), *post.ExpiresAt, time.Minute)
}

func TestCreatePostSanitizesHTML(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())
	user, topic, tag := newPostFixture(t, db)

	post, err := svc.Create(user, PostInput{
		Title:   "Sanitized",
		Body:    `hello <script>alert("xss")</script>world`,
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	})
	require.NoError(t, err)
	assert.NotContains(t, post.Body, "<script>")
	assert.Contains(t, post.Body, "hello")
}

func TestUpdatePostAuthorOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())
	user, topic, tag := newPostFixture(t, db)
	stranger := createUser(t, db, "stranger@columbia.edu", models.RoleStudent)

	post, err := svc.Create(user, PostInput{
		Title:   "Original title",
		Body:    "Original body",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	})
	require.NoError(t, err)

	in := PostInput{
		Title:   "Edited title",
		Body:    "Edited body",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	}
	assert.ErrorIs(t, svc.Update(stranger, post, in), ErrNotAuthor)

	require.NoError(t, svc.Update(user, post, in))
	assert.Equal(t, "Edited title", reloadPost(t, db, post.ID).Title)
}

func TestClearAIFlagModeratorOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	moderator := createUser(t, db, "mod@columbia.edu", models.RoleModerator)
	post := createPost(t, db, author, "Flagged post")
	require.NoError(t, db.Model(post).UpdateColumn("ai_flagged", true).Error)
	post.AIFlagged = true

	assert.ErrorIs(t, svc.ClearAIFlag(post, author), ErrNotModerator)

	require.NoError(t, svc.ClearAIFlag(post, moderator))
	assert.False(t, reloadPost(t, db, post.ID).AIFlagged)
}

func TestBookmarkOncePerUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	reader := createUser(t, db, "reader@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Bookmarkable")

	require.NoError(t, svc.Bookmark(reader, post))
	assert.ErrorIs(t, svc.Bookmark(reader, post), ErrAlreadyBookmarked)

	require.NoError(t, svc.Unbookmark(reader, post))
	assert.ErrorIs(t, svc.Unbookmark(reader, post), ErrBookmarkNotFound)
}

func TestCommentRequiresMatchingAnswer(t *testing.T) {
	db := newTestDB(t)
	identities := NewIdentityService(db)
	svc := NewCommentService(db, identities)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	commenter := createUser(t, db, "commenter@columbia.edu", models.RoleStudent)
	postA := createPost(t, db, author, "Thread A")
	postB := createPost(t, db, author, "Thread B")
	answerOnB := createAnswer(t, db, postB, author, "answer on B")

	_, err := svc.Create(commenter, postA, answerOnB, "confused comment")
	assert.ErrorIs(t, err, ErrAnswerMismatch)

	answerOnA := createAnswer(t, db, postA, author, "answer on A")
	comment, err := svc.Create(commenter, postA, answerOnA, "on topic")
	require.NoError(t, err)
	assert.NotZero(t, comment.ID)

	// Commenting assigns a thread identity too.
	var identity models.ThreadIdentity
	require.NoError(t, db.Where("user_id = ? AND post_id = ?", commenter.ID, postA.ID).First(&identity).Error)
}

func TestUpdatePostRecordsRevision(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())
	user, topic, tag := newPostFixture(t, db)

	post, err := svc.Create(user, PostInput{
		Title:   "Original title",
		Body:    "Original body",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Update(user, post, PostInput{
		Title:   "Edited title",
		Body:    "Edited body",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	}))

	var revisions []models.PostRevision
	require.NoError(t, db.Where("post_id = ?", post.ID).Find(&revisions).Error)
	require.Len(t, revisions, 1)
	assert.Equal(t, "Original title", revisions[0].Title)
	assert.Equal(t, "Original body", revisions[0].Body)
	assert.Equal(t, user.ID, revisions[0].UserID)

	// Re-saving identical content leaves no trace.
	require.NoError(t, svc.Update(user, post, PostInput{
		Title:   "Edited title",
		Body:    "Edited body",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	}))
	var count int64
	require.NoError(t, db.Model(&models.PostRevision{}).Where("post_id = ?", post.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdateAnswerRecordsRevision(t *testing.T) {
	db := newTestDB(t)
	identities := NewIdentityService(db)
	svc := NewAnswerService(db, identities)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	helper := createUser(t, db, "helper@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Answered question")

	answer, err := svc.Create(helper, post, "First draft")
	require.NoError(t, err)

	require.NoError(t, svc.Update(helper, post, answer, "Second draft"))

	var revisions []models.AnswerRevision
	require.NoError(t, db.Where("answer_id = ?", answer.ID).Find(&revisions).Error)
	require.Len(t, revisions, 1)
	assert.Equal(t, "First draft", revisions[0].Body)
	assert.Equal(t, helper.ID, revisions[0].UserID)

	require.NoError(t, svc.Update(helper, post, answer, "Second draft"))
	var count int64
	require.NoError(t, db.Model(&models.AnswerRevision{}).Where("answer_id = ?", answer.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeletePostCascades(t *testing.T) {
	db := newTestDB(t)
	identities := NewIdentityService(db)
	svc := NewPostService(db, nil, identities, testLogger())
	answers := NewAnswerService(db, identities)
	comments := NewCommentService(db, identities)
	user, topic, tag := newPostFixture(t, db)
	helper := createUser(t, db, "helper@columbia.edu", models.RoleStudent)
	reporter := createUser(t, db, "reporter@columbia.edu", models.RoleStudent)

	post, err := svc.Create(user, PostInput{
		Title:   "Delete me",
		Body:    "Everything hanging off this post should go too.",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	})
	require.NoError(t, err)

	answer, err := answers.Create(helper, post, "An answer")
	require.NoError(t, err)
	comment, err := comments.Create(user, post, answer, "A comment")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: helper.ID, VoteType: models.Upvote}).Error)
	require.NoError(t, db.Create(&models.AnswerLike{AnswerID: answer.ID, UserID: user.ID, VoteType: models.Upvote}).Error)
	require.NoError(t, db.Create(&models.AnswerCommentLike{AnswerCommentID: comment.ID, UserID: helper.ID, VoteType: models.Upvote}).Error)
	require.NoError(t, db.Create(&models.PostReport{PostID: post.ID, UserID: reporter.ID, Reason: models.ReasonSpam}).Error)
	require.NoError(t, svc.Bookmark(helper, post))
	require.NoError(t, svc.Update(user, post, PostInput{
		Title:   "Delete me, revised",
		Body:    "Everything hanging off this post should go too.",
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		TagIDs:  []uint{tag.ID},
	}))

	assert.ErrorIs(t, svc.Delete(reporter, post), ErrNotAuthor)

	require.NoError(t, svc.Delete(user, post))

	assert.ErrorIs(t, db.First(&models.Post{}, post.ID).Error, gorm.ErrRecordNotFound)
	for _, dependent := range []interface{}{
		&models.Answer{},
		&models.AnswerComment{},
		&models.Like{},
		&models.AnswerLike{},
		&models.AnswerCommentLike{},
		&models.PostReport{},
		&models.Bookmark{},
		&models.ThreadIdentity{},
		&models.PostRevision{},
		&models.AnswerRevision{},
	} {
		var count int64
		require.NoError(t, db.Model(dependent).Count(&count).Error)
		assert.EqualValues(t, 0, count, "%T rows left behind", dependent)
	}
}

func TestDeletePostModeratorOverride(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db, nil, NewIdentityService(db), testLogger())

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	moderator := createUser(t, db, "mod@columbia.edu", models.RoleModerator)
	post := createPost(t, db, author, "Removable post")

	require.NoError(t, svc.Delete(moderator, post))
	assert.ErrorIs(t, db.First(&models.Post{}, post.ID).Error, gorm.ErrRecordNotFound)
}
