package services

import (
	"context"
	"errors"
	"strings"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/query"
	"github.com/cppla/aiblog/storage"
	"github.com/cppla/aiblog/telemetry"
)

// PostInput is the payload accepted when creating a post.
type PostInput struct {
	Title   string   `json:"title" validate:"required,max=500"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"required,min=1,dive,required"`
}

// PageInfo describes the page returned by ListPosts.
type PageInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// PostList is a page of posts plus its pagination metadata.
type PostList struct {
	Data       []*models.Post `json:"data"`
	Pagination PageInfo       `json:"pagination"`
}

// PostService implements post queries and mutations. It holds no mutable
// state and is shared by all handlers.
type PostService struct {
	store storage.Store
}

func NewPostService(store storage.Store) *PostService {
	return &PostService{store: store}
}

// ListPosts returns one page of posts matching filters. The total comes from
// a separate count query over the same predicate.
func (s *PostService) ListPosts(ctx context.Context, filters query.PostFilters, opts query.PaginationOptions) (*PostList, error) {
	pred := query.BuildPostPredicate(filters)
	page := query.Normalize(opts)

	posts, err := s.store.ListPosts(ctx, pred, page)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountPosts(ctx, pred)
	if err != nil {
		return nil, err
	}
	return &PostList{
		Data: posts,
		Pagination: PageInfo{
			Total:      total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages(total),
		},
	}, nil
}

// GetPost counts a view and returns the post with its approved comment
// thread. The existence check, the increment and the re-read share one
// transaction.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post *models.Post
	err := s.store.Transaction(ctx, func(tx storage.Store) error {
		if _, err := tx.FindPost(ctx, id); err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if err := tx.IncrementPostViews(ctx, id); err != nil {
			return notFound(err, ErrPostNotFound)
		}
		p, err := tx.FindPostThread(ctx, id)
		if err != nil {
			return notFound(err, ErrPostNotFound)
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	telemetry.PostViewsTotal.Inc()
	return post, nil
}

// GetMyPosts lists every post of an active author, newest first.
func (s *PostService) GetMyPosts(ctx context.Context, authorID string) ([]*models.Post, error) {
	author, err := s.store.FindUser(ctx, authorID)
	if err != nil {
		return nil, notFound(err, ErrAuthorNotFound)
	}
	if author.Status != models.UserActive {
		return nil, ErrUserInactive
	}
	return s.store.ListPostsByAuthor(ctx, authorID)
}

// GetStats reads all counters from one snapshot.
func (s *PostService) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}
	err := s.store.Snapshot(ctx, func(tx storage.Store) error {
		counts := []struct {
			dst  *int64
			pred query.Predicate
		}{
			{&stats.TotalPosts, nil},
			{&stats.PublishedPosts, query.StatusIs(models.PostPublished)},
			{&stats.ArchivedPosts, query.StatusIs(models.PostArchived)},
			{&stats.DraftPosts, query.StatusIs(models.PostDraft)},
		}
		for _, c := range counts {
			n, err := tx.CountPosts(ctx, c.pred)
			if err != nil {
				return err
			}
			*c.dst = n
		}

		var err error
		if stats.TotalComments, err = tx.CountComments(ctx); err != nil {
			return err
		}
		if stats.TotalUsers, err = tx.CountUsers(ctx, ""); err != nil {
			return err
		}
		if stats.TotalAdmins, err = tx.CountUsers(ctx, models.RoleAdmin); err != nil {
			return err
		}
		if stats.TotalNormalUsers, err = tx.CountUsers(ctx, models.RoleUser); err != nil {
			return err
		}
		stats.TotalViews, err = tx.SumPostViews(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// CreatePost persists a new post owned by authorID.
func (s *PostService) CreatePost(ctx context.Context, in PostInput, authorID string) (*models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	// markup-only fields end up empty and are rejected here
	sanitizeFields(&in.Title, &in.Content)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Tags:     append([]string(nil), in.Tags...),
		AuthorID: authorID,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost applies patch for the post's author or an admin. Only admins may
// change the featured flag; it is dropped for everyone else.
func (s *PostService) UpdatePost(ctx context.Context, id string, patch models.PostPatch, callerID string, isAdmin bool) (*models.Post, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	sanitizeFields(patch.Title, patch.Content)
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if !isAdmin {
		patch.IsFeatured = nil
	}

	var updated *models.Post
	err := s.store.Transaction(ctx, func(tx storage.Store) error {
		post, err := tx.FindPost(ctx, id)
		if err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if post.AuthorID != callerID && !isAdmin {
			return ErrUpdatePostForbidden
		}
		updated, err = tx.UpdatePost(ctx, id, patch)
		return notFound(err, ErrPostNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePost hard-deletes a post under the same gate as UpdatePost.
func (s *PostService) DeletePost(ctx context.Context, id string, callerID string, isAdmin bool) error {
	return s.store.Transaction(ctx, func(tx storage.Store) error {
		post, err := tx.FindPost(ctx, id)
		if err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if post.AuthorID != callerID && !isAdmin {
			return ErrDeletePostForbidden
		}
		return notFound(tx.DeletePost(ctx, id), ErrPostNotFound)
	})
}

// notFound replaces a storage miss with the caller-facing error.
func notFound(err error, nf *Error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nf
	}
	return err
}
