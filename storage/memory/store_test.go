package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/query"
	"github.com/cppla/aiblog/storage"
)

// newTestStore returns a store whose clock advances one second per call.
func newTestStore() *Store {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return New().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
}

func createPost(t *testing.T, s *Store, title string, tags ...string) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Content: "content of " + title, Tags: pq.StringArray(tags), AuthorID: "author-1"}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func createComment(t *testing.T, s *Store, postID string, parent *string, status models.CommentStatus) *models.Comment {
	t.Helper()
	c := &models.Comment{Content: "c", AuthorID: "author-2", PostID: postID, ParentID: parent, Status: status}
	require.NoError(t, s.CreateComment(context.Background(), c))
	return c
}

func TestStore_CreatePostDefaults(t *testing.T) {
	s := newTestStore()
	p := createPost(t, s, "hello", "intro")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, models.PostPublished, p.Status)
	assert.False(t, p.IsFeatured)
	assert.Zero(t, p.Views)

	got, err := s.FindPost(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)

	_, err = s.FindPost(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ListPostsOrderingAndPaging(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	a := createPost(t, s, "a")
	b := createPost(t, s, "b")
	c := createPost(t, s, "c")

	page := query.Normalize(query.PaginationOptions{})
	got, err := s.ListPosts(ctx, nil, page)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	one, two := 2, 1
	page = query.Normalize(query.PaginationOptions{Page: &one, Limit: &two, SortOrder: "asc"})
	got, err = s.ListPosts(ctx, nil, page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestStore_ListPostsNegativeSkipReadsFromStart(t *testing.T) {
	s := newTestStore()
	createPost(t, s, "a")
	zero := 0
	got, err := s.ListPosts(context.Background(), nil, query.Normalize(query.PaginationOptions{Page: &zero}))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_FindPostThreadDepthAndModeration(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	p := createPost(t, s, "thread")

	top := createComment(t, s, p.ID, nil, models.CommentApproved)
	createComment(t, s, p.ID, nil, models.CommentPending)
	reply := createComment(t, s, p.ID, &top.ID, models.CommentApproved)
	createComment(t, s, p.ID, &top.ID, models.CommentRejected)
	deep := createComment(t, s, p.ID, &reply.ID, models.CommentApproved)
	createComment(t, s, p.ID, &deep.ID, models.CommentApproved)

	got, err := s.FindPostThread(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.CommentCount)
	require.Len(t, got.Comments, 1)
	require.Len(t, got.Comments[0].Replies, 1)
	require.Len(t, got.Comments[0].Replies[0].Replies, 1)
	assert.Equal(t, deep.ID, got.Comments[0].Replies[0].Replies[0].ID)
	assert.Nil(t, got.Comments[0].Replies[0].Replies[0].Replies)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	p := createPost(t, s, "a")

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx storage.Store) error {
		require.NoError(t, tx.IncrementPostViews(ctx, p.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Views)
}

func TestStore_DeletePostCascades(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	p := createPost(t, s, "a")
	c := createComment(t, s, p.ID, nil, models.CommentPending)

	require.NoError(t, s.DeletePost(ctx, p.ID))
	_, err := s.FindComment(ctx, c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeletePost(ctx, p.ID), storage.ErrNotFound)
}

func TestStore_UsersUniqueEmail(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &models.User{Name: "a", Email: "a@example.com"}))
	err := s.CreateUser(ctx, &models.User{Name: "b", Email: "A@example.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	admins, err := s.CountUsers(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, admins)
	all, err := s.CountUsers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), all)
}
