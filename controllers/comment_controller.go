package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

// CommentController exposes the comment endpoints. Every route sits behind
// the authorization gate.
type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

func (c *CommentController) CreateComment(ctx *gin.Context) {
	userID, _, ok := caller(ctx)
	if !ok {
		return
	}
	var in services.CommentInput
	if !bindJSON(ctx, &in) {
		return
	}
	comment, err := c.comments.CreateComment(ctx.Request.Context(), in, userID)
	if err != nil {
		respondError(ctx, err, "Failed to create comment")
		return
	}
	utils.Created(ctx, "Comment created successfully", comment)
}

func (c *CommentController) GetComment(ctx *gin.Context) {
	comment, err := c.comments.GetComment(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to fetch comment")
		return
	}
	utils.Success(ctx, "Comment fetched successfully", comment)
}

func (c *CommentController) GetCommentsByAuthor(ctx *gin.Context) {
	comments, err := c.comments.GetCommentsByAuthor(ctx.Request.Context(), ctx.Param("authorId"))
	if err != nil {
		respondError(ctx, err, "Failed to fetch comments")
		return
	}
	utils.Success(ctx, "Comments fetched successfully", comments)
}

func (c *CommentController) UpdateComment(ctx *gin.Context) {
	userID, _, ok := caller(ctx)
	if !ok {
		return
	}
	var patch models.CommentPatch
	if !bindJSON(ctx, &patch) {
		return
	}
	comment, err := c.comments.UpdateComment(ctx.Request.Context(), ctx.Param("id"), patch, userID)
	if err != nil {
		respondError(ctx, err, "Failed to update comment")
		return
	}
	utils.Success(ctx, "Comment updated successfully", comment)
}

func (c *CommentController) DeleteComment(ctx *gin.Context) {
	userID, _, ok := caller(ctx)
	if !ok {
		return
	}
	if err := c.comments.DeleteComment(ctx.Request.Context(), ctx.Param("id"), userID); err != nil {
		respondError(ctx, err, "Failed to delete comment")
		return
	}
	utils.Success(ctx, "Comment deleted successfully", nil)
}
