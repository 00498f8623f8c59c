package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

func TestEnsureIdentityAssignsStablePseudonym(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "First question")

	first, err := svc.EnsureIdentity(author, post)
	require.NoError(t, err)
	assert.Regexp(t, `^Lion #[0-9A-Z]{4}$`, first)

	second, err := svc.EnsureIdentity(author, post)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, db.Model(&models.ThreadIdentity{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEnsureIdentityPerThread(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	postA := createPost(t, db, author, "Question A")
	postB := createPost(t, db, author, "Question B")

	nameA, err := svc.EnsureIdentity(author, postA)
	require.NoError(t, err)
	nameB, err := svc.EnsureIdentity(author, postB)
	require.NoError(t, err)

	// Same generation scheme, but each thread holds its own row.
	assert.Equal(t, nameA, nameB)
	var count int64
	require.NoError(t, db.Model(&models.ThreadIdentity{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestAnonymousHandleFormat(t *testing.T) {
	cases := []struct {
		id   uint
		want string
	}{
		{1, "Lion #0001"},
		{10, "Lion #000A"},
		{35, "Lion #000Z"},
		{36, "Lion #0010"},
		{46655, "Lion #0ZZZ"},
		{1679615, "Lion #ZZZZ"},
		{1679616, "Lion #1000"}, // five base36 digits truncate to four
	}
	for _, tc := range cases {
		u := models.User{ID: tc.id}
		assert.Equal(t, tc.want, u.AnonymousHandle(), fmt.Sprintf("id %d", tc.id))
	}
}

func TestDisplayNameRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	answerer := createUser(t, db, "answerer@barnard.edu", models.RoleStudent)
	stranger := createUser(t, db, "stranger@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Display name rules")

	authorName, err := svc.EnsureIdentity(author, post)
	require.NoError(t, err)
	_, err = svc.EnsureIdentity(answerer, post)
	require.NoError(t, err)

	// Viewers see their own contributions as "You".
	assert.Equal(t, "You", svc.DisplayName(post, author, author))
	assert.Equal(t, "You", svc.DisplayName(post, answerer, answerer))

	// Other viewers see the stored pseudonym.
	assert.Equal(t, authorName, svc.DisplayName(post, author, stranger))
	assert.Equal(t, authorName, svc.DisplayName(post, author, nil))

	// A contributor with no thread identity falls back to the placeholder.
	assert.Equal(t, AnonymousPlaceholder, svc.DisplayName(post, stranger, author))
}

func TestDisplayNameRevealedIdentity(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	answerer := createUser(t, db, "answerer@barnard.edu", models.RoleStudent)
	post := createPost(t, db, author, "Revealed thread")
	_, err := svc.EnsureIdentity(author, post)
	require.NoError(t, err)
	answererName, err := svc.EnsureIdentity(answerer, post)
	require.NoError(t, err)

	post.ShowRealIdentity = true

	// Only the thread author is revealed; everyone else stays pseudonymous.
	assert.Equal(t, "author@columbia.edu", svc.DisplayName(post, author, answerer))
	assert.Equal(t, "author@columbia.edu", svc.DisplayName(post, author, author))
	assert.Equal(t, answererName, svc.DisplayName(post, answerer, author))
}

func TestIdentityPolicyEmailAllowed(t *testing.T) {
	policy := IdentityPolicy{
		AllowedDomains:     []string{"columbia.edu", "barnard.edu"},
		AllowedLoginEmails: []string{"guest@gmail.com"},
	}

	assert.True(t, policy.EmailAllowed("student@columbia.edu"))
	assert.True(t, policy.EmailAllowed("Student@BARNARD.edu"))
	assert.True(t, policy.EmailAllowed("guest@gmail.com"))
	assert.False(t, policy.EmailAllowed("outsider@gmail.com"))
	assert.False(t, policy.EmailAllowed("not-an-email"))
	assert.False(t, policy.EmailAllowed("student@columbia.edu.evil.com"))
}

func TestIdentityPolicyRoleFor(t *testing.T) {
	policy := IdentityPolicy{ModeratorEmails: []string{"mod@columbia.edu"}}

	assert.Equal(t, models.RoleModerator, policy.RoleFor("mod@columbia.edu"))
	assert.Equal(t, models.RoleModerator, policy.RoleFor("MOD@columbia.edu"))
	assert.Equal(t, models.RoleStudent, policy.RoleFor("student@columbia.edu"))
}

func TestEnsureIdentityLosesInsertRace(t *testing.T) {
	db, db2 := newTestDBPair(t)
	svc := NewIdentityService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Raced question")

	// A rival request commits its row between our existence check and our
	// insert, so the insert hits the unique index.
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("identity_rival_insert", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.ThreadIdentity); !ok || injected {
			return
		}
		injected = true
		require.NoError(t, db2.Create(&models.ThreadIdentity{
			UserID:    author.ID,
			PostID:    post.ID,
			Pseudonym: "Lion #0099",
		}).Error)
	})
	require.NoError(t, err)

	pseudonym, err := svc.EnsureIdentity(author, post)
	require.NoError(t, err)
	require.True(t, injected)
	// The winner's pseudonym is authoritative.
	assert.Equal(t, "Lion #0099", pseudonym)

	var count int64
	require.NoError(t, db.Model(&models.ThreadIdentity{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
