package services

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/esa0624/CU-Blueboard/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, _ := newTestDBPair(t)
	return db
}

// newTestDBPair opens two sessions on the same database file so tests can
// interleave writes from a second connection mid-operation.
func newTestDBPair(t *testing.T) (*gorm.DB, *gorm.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Topic{},
		&models.Tag{},
		&models.Post{},
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
		&models.AuditLog{},
	))

	db2, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, db2
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Email: email, Role: role, Provider: "local"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTopic(t *testing.T, db *gorm.DB, name string) *models.Topic {
	t.Helper()
	topic := &models.Topic{Name: name}
	require.NoError(t, db.Create(topic).Error)
	return topic
}

func createTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slugify(name)}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func createPost(t *testing.T, db *gorm.DB, author *models.User, title string) *models.Post {
	t.Helper()
	topic := &models.Topic{Name: "topic for " + title}
	require.NoError(t, db.Create(topic).Error)
	post := &models.Post{
		UserID:  author.ID,
		Title:   title,
		Body:    "body of " + title,
		TopicID: topic.ID,
		School:  models.SchoolColumbia,
		Status:  models.PostStatusOpen,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func createAnswer(t *testing.T, db *gorm.DB, post *models.Post, author *models.User, body string) *models.Answer {
	t.Helper()
	answer := &models.Answer{PostID: post.ID, UserID: author.ID, Body: body}
	require.NoError(t, db.Create(answer).Error)
	return answer
}

func reloadPost(t *testing.T, db *gorm.DB, id uint) *models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, db.First(&post, id).Error)
	return &post
}
