package storage

import (
	"context"
	"errors"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/query"
)

// ErrNotFound is returned when a point lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("duplicate record")

// Store is the persistence contract used by the services.
type Store interface {
	// Transaction runs fn atomically; fn's error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	// Snapshot runs fn against a single consistent read-only view.
	Snapshot(ctx context.Context, fn func(tx Store) error) error

	PostStore
	CommentStore
	UserStore
}

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	FindPost(ctx context.Context, id string) (*models.Post, error)
	// FindPostThread loads the post, its comment count and up to three levels
	// of approved comments, each level newest first.
	FindPostThread(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, pred query.Predicate, page query.Pagination) ([]*models.Post, error)
	CountPosts(ctx context.Context, pred query.Predicate) (int64, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	IncrementPostViews(ctx context.Context, id string) error
	SumPostViews(ctx context.Context) (int64, error)
	DeletePost(ctx context.Context, id string) error
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	// FindComment loads a comment with its post reference attached.
	FindComment(ctx context.Context, id string) (*models.Comment, error)
	ListCommentsByAuthor(ctx context.Context, authorID string) ([]*models.Comment, error)
	UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	CountComments(ctx context.Context) (int64, error)
}

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	// CountUsers counts users holding role; an empty role counts everyone.
	CountUsers(ctx context.Context, role models.Role) (int64, error)
}
