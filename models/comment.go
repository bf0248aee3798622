package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentPending  CommentStatus = "PENDING"
	CommentApproved CommentStatus = "APPROVED"
	CommentRejected CommentStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentPending, CommentApproved, CommentRejected:
		return true
	}
	return false
}

// Comment is a moderated annotation on a post. Replies point at their parent.
type Comment struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	AuthorID  string        `gorm:"type:uuid;index;not null" json:"authorId"`
	PostID    string        `gorm:"type:uuid;index;not null" json:"postId"`
	ParentID  *string       `gorm:"type:uuid;index" json:"parentId"`
	Status    CommentStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	Post    *PostRef   `gorm:"foreignKey:PostID" json:"post,omitempty"`
	Replies []*Comment `gorm:"foreignKey:ParentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"replies,omitempty"`
}

// BeforeCreate assigns an id and the default moderation status.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	c.Prepare(time.Now())
	return nil
}

// Prepare fills the defaults a freshly created comment carries.
func (c *Comment) Prepare(now time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CommentPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
}

// CommentPatch carries the moderation update of a comment.
type CommentPatch struct {
	Content *string        `json:"content" validate:"omitnil,min=1,max=100"`
	Status  *CommentStatus `json:"status" validate:"omitnil,comment_status"`
}
