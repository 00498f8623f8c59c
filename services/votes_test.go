package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

func TestVoteCreateToggleSwitch(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoteService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	voter := createUser(t, db, "voter@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Votable post")

	// No vote: upvote creates a row.
	require.NoError(t, svc.Upvote(voter.ID, post))
	score, err := svc.NetScore(post)
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	// Same polarity: the vote toggles off.
	require.NoError(t, svc.Upvote(voter.ID, post))
	score, err = svc.NetScore(post)
	require.NoError(t, err)
	assert.Equal(t, 0, score)
	vote, err := svc.FindVote(voter.ID, post)
	require.NoError(t, err)
	assert.Nil(t, vote)

	// Opposite polarity: the row flips in place.
	require.NoError(t, svc.Upvote(voter.ID, post))
	require.NoError(t, svc.Downvote(voter.ID, post))
	score, err = svc.NetScore(post)
	require.NoError(t, err)
	assert.Equal(t, -1, score)

	var count int64
	require.NoError(t, db.Model(&models.Like{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestNetScoreSumsPolarities(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoteService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Scored post")

	for i, dir := range []int{models.Upvote, models.Upvote, models.Upvote, models.Downvote} {
		voter := createUser(t, db, userEmail(i), models.RoleStudent)
		if dir == models.Upvote {
			require.NoError(t, svc.Upvote(voter.ID, post))
		} else {
			require.NoError(t, svc.Downvote(voter.ID, post))
		}
	}

	score, err := svc.NetScore(post)
	require.NoError(t, err)
	assert.Equal(t, 2, score)
}

func TestVoteAppliesToAnswersAndComments(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoteService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	voter := createUser(t, db, "voter@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Thread")
	answer := createAnswer(t, db, post, author, "an answer")
	comment := &models.AnswerComment{AnswerID: answer.ID, UserID: author.ID, Body: "a comment"}
	require.NoError(t, db.Create(comment).Error)

	require.NoError(t, svc.Upvote(voter.ID, answer))
	require.NoError(t, svc.Downvote(voter.ID, comment))

	answerScore, err := svc.NetScore(answer)
	require.NoError(t, err)
	assert.Equal(t, 1, answerScore)

	commentScore, err := svc.NetScore(comment)
	require.NoError(t, err)
	assert.Equal(t, -1, commentScore)

	// Votes on one target never leak onto another.
	postScore, err := svc.NetScore(post)
	require.NoError(t, err)
	assert.Equal(t, 0, postScore)
}

func TestVoteIndependentPerUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoteService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	alice := createUser(t, db, "alice@columbia.edu", models.RoleStudent)
	bob := createUser(t, db, "bob@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Thread")

	require.NoError(t, svc.Upvote(alice.ID, post))
	require.NoError(t, svc.Downvote(bob.ID, post))

	aliceVote, err := svc.FindVote(alice.ID, post)
	require.NoError(t, err)
	require.NotNil(t, aliceVote)
	assert.Equal(t, models.Upvote, aliceVote.Polarity())

	bobVote, err := svc.FindVote(bob.ID, post)
	require.NoError(t, err)
	require.NotNil(t, bobVote)
	assert.Equal(t, models.Downvote, bobVote.Polarity())
}

func userEmail(i int) string {
	return string(rune('a'+i)) + "-voter@columbia.edu"
}

func TestVoteLosesInsertRace(t *testing.T) {
	db, db2 := newTestDBPair(t)
	svc := NewVoteService(db)

	author := createUser(t, db, "author@columbia.edu", models.RoleStudent)
	voter := createUser(t, db, "voter@columbia.edu", models.RoleStudent)
	post := createPost(t, db, author, "Raced post")

	// A rival request commits a downvote between our existence check and
	// our insert, so the insert hits the unique index.
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("vote_rival_insert", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Like); !ok || injected {
			return
		}
		injected = true
		require.NoError(t, db2.Create(&models.Like{
			UserID:   voter.ID,
			PostID:   post.ID,
			VoteType: models.Downvote,
		}).Error)
	})
	require.NoError(t, err)

	// The conflict re-reads the rival row and continues the transition
	// table against it: opposite polarity flips in place.
	require.NoError(t, svc.Upvote(voter.ID, post))
	require.True(t, injected)

	vote, err := svc.FindVote(voter.ID, post)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.Upvote, vote.Polarity())

	var count int64
	require.NoError(t, db.Model(&models.Like{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
