package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/query"
	"github.com/cppla/aiblog/storage"
)

// commentCountColumn selects the per-post comment total alongside posts.*.
const commentCountColumn = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count"

// Store implements storage.Store on top of gorm and PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New wraps an opened gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Snapshot(ctx context.Context, fn func(tx storage.Store) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	}, opts)
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (s *Store) FindPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *Store) FindPostThread(ctx context.Context, id string) (*models.Post, error) {
	approved := func(level *gorm.DB) *gorm.DB {
		return level.Where("status = ?", models.CommentApproved).Order("created_at DESC")
	}
	var post models.Post
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(commentCountColumn).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return approved(db.Where("parent_id IS NULL"))
		}).
		Preload("Comments.Replies", approved).
		Preload("Comments.Replies.Replies", approved).
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	if post.Comments == nil {
		post.Comments = []*models.Comment{}
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, pred query.Predicate, page query.Pagination) ([]*models.Post, error) {
	order := clause.OrderByColumn{
		Column: clause.Column{Table: "posts", Name: storage.PostSortColumn(page.SortBy)},
		Desc:   page.Descending(),
	}
	q := where(s.db.WithContext(ctx).Model(&models.Post{}).Select(commentCountColumn), pred).
		Order(order).
		Limit(page.Limit).
		Offset(page.Skip) // gorm ignores a negative offset, so page 0 reads from the start

	posts := []*models.Post{}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context, pred query.Predicate) (int64, error) {
	var total int64
	err := where(s.db.WithContext(ctx).Model(&models.Post{}), pred).Count(&total).Error
	return total, err
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(commentCountColumn).
		Where("posts.author_id = ?", authorID).
		Order("posts.created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	if cols := patch.Columns(); len(cols) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, storage.ErrNotFound
		}
	}
	return s.FindPost(ctx, id)
}

func (s *Store) IncrementPostViews(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SumPostViews(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Select("COALESCE(SUM(views), 0)").Scan(&total).Error
	return total, err
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

func (s *Store) FindComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).
		Preload("Post", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title") }).
		First(&comment, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, authorID string) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := s.db.WithContext(ctx).
		Preload("Post", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title") }).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

func (s *Store) UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	cols := map[string]interface{}{}
	if patch.Content != nil {
		cols["content"] = *patch.Content
	}
	if patch.Status != nil {
		cols["status"] = *patch.Status
	}
	if len(cols) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, storage.ErrNotFound
		}
	}
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).Count(&total).Error
	return total, err
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) MarkEmailVerified(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("email_verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context, role models.Role) (int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	err := q.Count(&total).Error
	return total, err
}

func where(db *gorm.DB, pred query.Predicate) *gorm.DB {
	if frag, args := pred.SQL(); frag != "" {
		return db.Where(frag, args...)
	}
	return db
}

// translate maps gorm errors onto storage sentinels. Duplicate keys are only
// recognised when the handle was opened with TranslateError.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrDuplicate
	}
	return err
}
