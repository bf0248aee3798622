package services

import (
	"context"
	"strings"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/storage"
	"github.com/cppla/aiblog/telemetry"
)

// CommentInput is the payload accepted when creating a comment. The author
// always comes from the caller identity.
type CommentInput struct {
	Content  string  `json:"content" validate:"required,max=100"`
	PostID   string  `json:"postId" validate:"required"`
	ParentID *string `json:"parentId"`
}

type CommentService struct {
	store storage.Store
}

func NewCommentService(store storage.Store) *CommentService {
	return &CommentService{store: store}
}

// CreateComment stores a pending comment on an existing post. A parent, when
// given, only has to exist; it is not required to sit on the same post.
func (s *CommentService) CreateComment(ctx context.Context, in CommentInput, authorID string) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.ParentID != nil && strings.TrimSpace(*in.ParentID) == "" {
		in.ParentID = nil
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	sanitizeFields(&in.Content)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content:  in.Content,
		AuthorID: authorID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
		Status:   models.CommentPending,
	}
	err := s.store.Transaction(ctx, func(tx storage.Store) error {
		if _, err := tx.FindPost(ctx, in.PostID); err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if in.ParentID != nil {
			if _, err := tx.FindComment(ctx, *in.ParentID); err != nil {
				return notFound(err, ErrParentCommentNotFound)
			}
		}
		return tx.CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	telemetry.CommentsCreatedTotal.Inc()
	return comment, nil
}

// GetComment returns a comment with its post's id and title.
func (s *CommentService) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := s.store.FindComment(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCommentNotFound)
	}
	return comment, nil
}

// GetCommentsByAuthor lists an existing author's comments, newest first.
func (s *CommentService) GetCommentsByAuthor(ctx context.Context, authorID string) ([]*models.Comment, error) {
	if _, err := s.store.FindUser(ctx, authorID); err != nil {
		return nil, notFound(err, ErrAuthorNotFound)
	}
	return s.store.ListCommentsByAuthor(ctx, authorID)
}

// UpdateComment sets content and moderation status. Unlike DeleteComment it
// does not compare callerID with the author, so any authenticated caller can
// moderate.
func (s *CommentService) UpdateComment(ctx context.Context, id string, patch models.CommentPatch, callerID string) (*models.Comment, error) {
	if patch.Content != nil {
		trimmed := strings.TrimSpace(*patch.Content)
		patch.Content = &trimmed
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	sanitizeFields(patch.Content)
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	var updated *models.Comment
	err := s.store.Transaction(ctx, func(tx storage.Store) error {
		if _, err := tx.FindComment(ctx, id); err != nil {
			return notFound(err, ErrCommentNotFound)
		}
		var err error
		updated, err = tx.UpdateComment(ctx, id, patch)
		return notFound(err, ErrCommentNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteComment removes a comment on behalf of its author.
func (s *CommentService) DeleteComment(ctx context.Context, id string, callerID string) error {
	return s.store.Transaction(ctx, func(tx storage.Store) error {
		comment, err := tx.FindComment(ctx, id)
		if err != nil {
			return notFound(err, ErrCommentNotFound)
		}
		if comment.AuthorID != callerID {
			return ErrDeleteCommentForbidden
		}
		return notFound(tx.DeleteComment(ctx, id), ErrCommentNotFound)
	})
}
