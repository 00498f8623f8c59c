package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/utils"
)

// Expiration window bounds, in days. A post either never expires or expires
// inside this window.
const (
	MinExpiryDays = 7
	MaxExpiryDays = 30
)

// Tag count bounds per post.
const (
	MinTags = 1
	MaxTags = 5
)

// PostInput is the author-supplied content for creating or editing a post.
type PostInput struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	TopicID       uint   `json:"topic_id"`
	School        string `json:"school"`
	CourseCode    string `json:"course_code"`
	TagIDs        []uint `json:"tag_ids"`
	ExpiresInDays int    `json:"expires_in_days"` // 0 means no expiration
}

// PostService owns the post lifecycle: validation, sanitizing, identity
// assignment and the fire-and-forget screening dispatch.
type PostService struct {
	db         *gorm.DB
	queue      TaskQueue // may be nil when async screening is disabled
	identities *IdentityService
	log        *zap.SugaredLogger
}

// NewPostService creates a PostService.
func NewPostService(db *gorm.DB, queue TaskQueue, identities *IdentityService, log *zap.SugaredLogger) *PostService {
	return &PostService{db: db, queue: queue, identities: identities, log: log}
}

// Create validates and persists a new post, assigns the author's thread
// identity, and dispatches the async screening task. Screening dispatch
// failures are logged and swallowed; they never fail post creation.
func (s *PostService) Create(user *models.User, in PostInput) (*models.Post, error) {
	post, err := s.buildPost(user, in)
	if err != nil {
		return nil, err
	}

	if err := s.db.Create(post).Error; err != nil {
		return nil, err
	}
	if _, err := s.identities.EnsureIdentity(user, post); err != nil {
		return nil, err
	}

	if s.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.queue.EnqueueScreening(ctx, post.ID); err != nil {
			s.log.Warnf("failed to enqueue screening for post %d: %v", post.ID, err)
		}
	}
	return post, nil
}

// Update applies edits from the author. When the title or body actually
// changed, the previous content is preserved as a PostRevision before the
// edit lands.
func (s *PostService) Update(actor *models.User, post *models.Post, in PostInput) error {
	if post.UserID != actor.ID {
		return ErrNotAuthor
	}
	updated, err := s.buildPost(actor, in)
	if err != nil {
		return err
	}

	prevTitle, prevBody := post.Title, post.Body
	post.Title = updated.Title
	post.Body = updated.Body
	post.TopicID = updated.TopicID
	post.School = updated.School
	post.CourseCode = updated.CourseCode
	post.ExpiresAt = updated.ExpiresAt

	return s.db.Transaction(func(tx *gorm.DB) error {
		if prevTitle != post.Title || prevBody != post.Body {
			revision := models.PostRevision{
				PostID: post.ID,
				UserID: actor.ID,
				Title:  prevTitle,
				Body:   prevBody,
			}
			if err := tx.Create(&revision).Error; err != nil {
				return err
			}
		}
		if err := tx.Save(post).Error; err != nil {
			return err
		}
		return tx.Model(post).Association("Tags").Replace(updated.Tags)
	})
}

// Delete removes a post and everything hanging off it: answers with their
// comments and votes, post votes, reports, bookmarks, thread identities,
// revisions and tag links. Allowed for the author and for moderators.
func (s *PostService) Delete(actor *models.User, post *models.Post) error {
	if post.UserID != actor.ID && !actor.CanModerate() {
		return ErrNotAuthor
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var answerIDs []uint
		if err := tx.Model(&models.Answer{}).Where("post_id = ?", post.ID).
			Pluck("id", &answerIDs).Error; err != nil {
			return err
		}
		if len(answerIDs) > 0 {
			var commentIDs []uint
			if err := tx.Model(&models.AnswerComment{}).Where("answer_id IN ?", answerIDs).
				Pluck("id", &commentIDs).Error; err != nil {
				return err
			}
			if len(commentIDs) > 0 {
				if err := tx.Where("answer_comment_id IN ?", commentIDs).
					Delete(&models.AnswerCommentLike{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", commentIDs).
					Delete(&models.AnswerComment{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("answer_id IN ?", answerIDs).Delete(&models.AnswerLike{}).Error; err != nil {
				return err
			}
			if err := tx.Where("answer_id IN ?", answerIDs).Delete(&models.AnswerRevision{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.Answer{}).Error; err != nil {
				return err
			}
		}
		for _, dependent := range []interface{}{
			&models.Like{},
			&models.PostReport{},
			&models.Bookmark{},
			&models.ThreadIdentity{},
			&models.PostRevision{},
		} {
			if err := tx.Where("post_id = ?", post.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
}

func (s *PostService) buildPost(user *models.User, in PostInput) (*models.Post, error) {
	title := utils.Sanitize(strings.TrimSpace(in.Title))
	if title == "" {
		return nil, &ValidationError{Field: "title", Msg: "can't be blank"}
	}
	body := utils.Sanitize(strings.TrimSpace(in.Body))
	if body == "" {
		return nil, &ValidationError{Field: "body", Msg: "can't be blank"}
	}

	var topic models.Topic
	if err := s.db.First(&topic, in.TopicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "topic", Msg: "can't be blank"}
		}
		return nil, err
	}

	if !validSchool(in.School) {
		return nil, &ValidationError{Field: "school", Msg: "is not included in the list"}
	}

	if len(in.TagIDs) < MinTags {
		return nil, &ValidationError{Field: "tags", Msg: "must include at least one tag"}
	}
	if len(in.TagIDs) > MaxTags {
		return nil, &ValidationError{Field: "tags", Msg: "cannot include more than 5 tags"}
	}
	var tags []models.Tag
	if err := s.db.Where("id IN ?", in.TagIDs).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(in.TagIDs) {
		return nil, &ValidationError{Field: "tags", Msg: "contains an unknown tag"}
	}

	var expiresAt *time.Time
	if in.ExpiresInDays != 0 {
		if in.ExpiresInDays < MinExpiryDays || in.ExpiresInDays > MaxExpiryDays {
			return nil, &ValidationError{Field: "expires_at", Msg: "must be between 7 and 30 days from now"}
		}
		t := time.Now().AddDate(0, 0, in.ExpiresInDays)
		expiresAt = &t
	}

	return &models.Post{
		UserID:     user.ID,
		Title:      title,
		Body:       body,
		TopicID:    topic.ID,
		School:     in.School,
		CourseCode: strings.TrimSpace(in.CourseCode),
		Status:     models.PostStatusOpen,
		ExpiresAt:  expiresAt,
		Tags:       tags,
	}, nil
}

// ClearAIFlag removes the AI flag after moderator review.
func (s *PostService) ClearAIFlag(post *models.Post, moderator *models.User) error {
	if !moderator.CanModerate() {
		return ErrNotModerator
	}
	if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("ai_flagged", false).Error; err != nil {
		return err
	}
	post.AIFlagged = false
	return nil
}

// Bookmark saves a post for a user.
func (s *PostService) Bookmark(user *models.User, post *models.Post) error {
	bookmark := models.Bookmark{UserID: user.ID, PostID: post.ID}
	if err := s.db.Create(&bookmark).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrAlreadyBookmarked
		}
		return err
	}
	return nil
}

// Unbookmark removes a user's bookmark.
func (s *PostService) Unbookmark(user *models.User, post *models.Post) error {
	res := s.db.Where("user_id = ? AND post_id = ?", user.ID, post.ID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBookmarkNotFound
	}
	return nil
}

func validSchool(school string) bool {
	for _, s := range models.Schools {
		if s == school {
			return true
		}
	}
	return false
}

// AnswerService creates and maintains answers under the thread-lock rules.
type AnswerService struct {
	db         *gorm.DB
	identities *IdentityService
}

// NewAnswerService creates an AnswerService.
func NewAnswerService(db *gorm.DB, identities *IdentityService) *AnswerService {
	return &AnswerService{db: db, identities: identities}
}

// Create adds an answer to a post. Locked threads reject new answers; only
// the already-accepted answer may be touched while locked.
func (s *AnswerService) Create(user *models.User, post *models.Post, body string) (*models.Answer, error) {
	body = utils.Sanitize(strings.TrimSpace(body))
	if body == "" {
		return nil, &ValidationError{Field: "body", Msg: "can't be blank"}
	}
	if post.Locked() {
		return nil, ErrThreadLocked
	}

	answer := &models.Answer{PostID: post.ID, UserID: user.ID, Body: body}
	if err := s.db.Create(answer).Error; err != nil {
		return nil, err
	}
	if _, err := s.identities.EnsureIdentity(user, post); err != nil {
		return nil, err
	}
	return answer, nil
}

// Update edits an answer body. On a locked thread only the accepted answer
// may be re-saved, which keeps re-validation flows working. A changed body
// is preserved as an AnswerRevision before the edit lands.
func (s *AnswerService) Update(actor *models.User, post *models.Post, answer *models.Answer, body string) error {
	if answer.UserID != actor.ID {
		return ErrNotAuthor
	}
	if post.Locked() && (post.AcceptedAnswerID == nil || *post.AcceptedAnswerID != answer.ID) {
		return ErrThreadLocked
	}
	body = utils.Sanitize(strings.TrimSpace(body))
	if body == "" {
		return &ValidationError{Field: "body", Msg: "can't be blank"}
	}

	prevBody := answer.Body
	answer.Body = body
	return s.db.Transaction(func(tx *gorm.DB) error {
		if prevBody != answer.Body {
			revision := models.AnswerRevision{
				AnswerID: answer.ID,
				UserID:   actor.ID,
				Body:     prevBody,
			}
			if err := tx.Create(&revision).Error; err != nil {
				return err
			}
		}
		return tx.Save(answer).Error
	})
}

// Delete removes an answer. Deleting the accepted answer nullifies the
// post's reference and reopens the thread, mirroring the store's
// referential-nullify behavior.
func (s *AnswerService) Delete(actor *models.User, post *models.Post, answer *models.Answer) error {
	if answer.UserID != actor.ID && !actor.CanModerate() {
		return ErrNotAuthor
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if post.AcceptedAnswerID != nil && *post.AcceptedAnswerID == answer.ID {
			if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
				"accepted_answer_id": nil,
				"locked_at":          nil,
				"status":             models.PostStatusOpen,
			}).Error; err != nil {
				return err
			}
			post.AcceptedAnswerID = nil
			post.LockedAt = nil
			post.Status = models.PostStatusOpen
		}
		return tx.Delete(answer).Error
	})
}

// CommentService creates answer comments.
type CommentService struct {
	db         *gorm.DB
	identities *IdentityService
}

// NewCommentService creates a CommentService.
func NewCommentService(db *gorm.DB, identities *IdentityService) *CommentService {
	return &CommentService{db: db, identities: identities}
}

// Create adds a comment under an answer and assigns the commenter's thread
// identity; commenting is a first-class contribution to the thread.
func (s *CommentService) Create(user *models.User, post *models.Post, answer *models.Answer, body string) (*models.AnswerComment, error) {
	body = utils.Sanitize(strings.TrimSpace(body))
	if body == "" {
		return nil, &ValidationError{Field: "body", Msg: "can't be blank"}
	}
	if answer.PostID != post.ID {
		return nil, ErrAnswerMismatch
	}

	comment := &models.AnswerComment{AnswerID: answer.ID, UserID: user.ID, Body: body}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, err
	}
	if _, err := s.identities.EnsureIdentity(user, post); err != nil {
		return nil, err
	}
	return comment, nil
}
