package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostDraft     PostStatus = "DRAFT"
	PostPublished PostStatus = "PUBLISHED"
	PostArchived  PostStatus = "ARCHIVED"
)

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	switch s {
	case PostDraft, PostPublished, PostArchived:
		return true
	}
	return false
}

// Post represents a blog post owned by its author.
type Post struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string         `gorm:"size:500;not null" json:"title"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Tags       pq.StringArray `gorm:"type:text[];not null" json:"tags"`
	AuthorID   string         `gorm:"type:uuid;index;not null" json:"authorId"`
	Status     PostStatus     `gorm:"size:16;not null;default:PUBLISHED" json:"status"`
	IsFeatured bool           `gorm:"not null;default:false" json:"isFeatured"`
	Views      int64          `gorm:"not null;default:0" json:"views"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`

	// CommentCount is filled by queries that select it; it is never written.
	CommentCount int64      `gorm:"->;-:migration" json:"commentCount"`
	Comments     []*Comment `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// BeforeCreate assigns an id and the default status.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	p.Prepare(time.Now())
	return nil
}

// Prepare fills the defaults a freshly created post carries.
func (p *Post) Prepare(now time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PostPublished
	}
	if p.Tags == nil {
		p.Tags = pq.StringArray{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
}

// HasTag reports whether the post carries exactly the given tag.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PostRef is the slim post projection attached to comments.
type PostRef struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	Title string `json:"title"`
}

// TableName binds PostRef to the posts table.
func (PostRef) TableName() string { return "posts" }

// PostPatch carries a partial post update. Nil fields are left untouched.
type PostPatch struct {
	Title      *string     `json:"title" validate:"omitnil,min=1,max=500"`
	Content    *string     `json:"content" validate:"omitnil,min=1"`
	Tags       *[]string   `json:"tags" validate:"omitnil,min=1,dive,required"`
	Status     *PostStatus `json:"status" validate:"omitnil,post_status"`
	IsFeatured *bool       `json:"isFeatured"`
}

// Empty reports whether the patch carries no fields.
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil && p.Status == nil && p.IsFeatured == nil
}

// Apply copies the present fields onto post.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Tags != nil {
		post.Tags = append(pq.StringArray{}, (*p.Tags)...)
	}
	if p.Status != nil {
		post.Status = *p.Status
	}
	if p.IsFeatured != nil {
		post.IsFeatured = *p.IsFeatured
	}
}

// Columns returns the column assignments for the present fields.
func (p PostPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Content != nil {
		cols["content"] = *p.Content
	}
	if p.Tags != nil {
		cols["tags"] = pq.StringArray(*p.Tags)
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.IsFeatured != nil {
		cols["is_featured"] = *p.IsFeatured
	}
	return cols
}

// Stats aggregates content and user counters.
type Stats struct {
	TotalPosts       int64 `json:"totalPosts"`
	PublishedPosts   int64 `json:"publishedPosts"`
	ArchivedPosts    int64 `json:"archivedPosts"`
	DraftPosts       int64 `json:"draftPosts"`
	TotalComments    int64 `json:"totalComments"`
	TotalUsers       int64 `json:"totalUsers"`
	TotalAdmins      int64 `json:"totalAdmins"`
	TotalNormalUsers int64 `json:"totalNormalUsers"`
	TotalViews       int64 `json:"totalViews"`
}
