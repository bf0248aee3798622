package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/storage/memory"
)

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	posts    *PostService
	comments *CommentService
}

// newFixture builds services over a memory store whose clock advances one
// second per read, so creation order is also createdAt order.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store := memory.New().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	return &fixture{
		ctx:      context.Background(),
		store:    store,
		posts:    NewPostService(store),
		comments: NewCommentService(store),
	}
}

func (f *fixture) user(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: role, EmailVerified: true}
	require.NoError(t, f.store.CreateUser(f.ctx, u))
	return u
}

func (f *fixture) post(t *testing.T, authorID, title string, tags ...string) *models.Post {
	t.Helper()
	if len(tags) == 0 {
		tags = []string{"general"}
	}
	p, err := f.posts.CreatePost(f.ctx, PostInput{Title: title, Content: title + " body", Tags: tags}, authorID)
	require.NoError(t, err)
	return p
}

// comment creates a comment and moves it to status directly.
func (f *fixture) comment(t *testing.T, authorID, postID string, parent *models.Comment, status models.CommentStatus) *models.Comment {
	t.Helper()
	in := CommentInput{Content: "c", PostID: postID}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	c, err := f.comments.CreateComment(f.ctx, in, authorID)
	require.NoError(t, err)
	if status != models.CommentPending {
		c, err = f.comments.UpdateComment(f.ctx, c.ID, models.CommentPatch{Status: &status}, authorID)
		require.NoError(t, err)
	}
	return c
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "unexpected error %v", err)
}

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	assertKind(t, err, KindValidation)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func ptr[T any](v T) *T { return &v }
