package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// AnonymousPlaceholder is shown when no thread identity exists for a
// contributor, e.g. a viewer previewing a thread they never posted in.
const AnonymousPlaceholder = "Anonymous"

// IdentityPolicy carries the config-derived allow-lists that drive sign-in
// and role assignment. It is injected, never read from globals.
type IdentityPolicy struct {
	AllowedDomains     []string // campus domains, e.g. columbia.edu
	AllowedLoginEmails []string // bypass the domain check
	ModeratorEmails    []string // granted the moderator role on sign-in
}

// EmailAllowed reports whether the address may sign in: either its domain is
// a campus domain or the full address is explicitly allow-listed.
func (p IdentityPolicy) EmailAllowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, allowed := range p.AllowedLoginEmails {
		if strings.EqualFold(allowed, email) {
			return true
		}
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range p.AllowedDomains {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}

// RoleFor resolves the role an email earns. Moderator allow-list membership
// is re-checked on every sign-in so removals take effect.
func (p IdentityPolicy) RoleFor(email string) models.Role {
	for _, m := range p.ModeratorEmails {
		if strings.EqualFold(m, email) {
			return models.RoleModerator
		}
	}
	return models.RoleStudent
}

// IdentityService assigns per-thread pseudonyms and resolves display names.
type IdentityService struct {
	db *gorm.DB
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{db: db}
}

// EnsureIdentity returns the pseudonym for (user, post), creating the
// ThreadIdentity row on first contribution. The unique index on
// (user_id, post_id) resolves concurrent first contributions: a duplicate-key
// conflict means another request won the insert, so the stored row is
// fetched and returned instead. Once written, a pseudonym is immutable.
func (s *IdentityService) EnsureIdentity(user *models.User, post *models.Post) (string, error) {
	var identity models.ThreadIdentity
	err := s.db.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&identity).Error
	if err == nil {
		return identity.Pseudonym, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	identity = models.ThreadIdentity{
		UserID:    user.ID,
		PostID:    post.ID,
		Pseudonym: user.AnonymousHandle(),
	}
	if err := s.db.Create(&identity).Error; err != nil {
		if !isDuplicateKey(err) {
			return "", err
		}
		// Lost the race; the winner's pseudonym is authoritative.
		if err := s.db.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&identity).Error; err != nil {
			return "", err
		}
	}
	return identity.Pseudonym, nil
}

// DisplayName resolves how a contributor appears to a viewer on a thread.
// The thread author's real email shows only when the post reveals identity;
// viewers see their own content as "You"; everyone else resolves to the
// stored pseudonym, or a generic placeholder when no identity exists.
func (s *IdentityService) DisplayName(post *models.Post, contributor *models.User, viewer *models.User) string {
	revealed := post.ShowRealIdentity && contributor.ID == post.UserID
	if viewer != nil && viewer.ID == contributor.ID {
		if revealed {
			return contributor.Email
		}
		return "You"
	}
	if revealed {
		return contributor.Email
	}

	var identity models.ThreadIdentity
	err := s.db.Where("user_id = ? AND post_id = ?", contributor.ID, post.ID).First(&identity).Error
	if err != nil {
		return AnonymousPlaceholder
	}
	return identity.Pseudonym
}
