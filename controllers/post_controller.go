package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/query"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

// PostController exposes post queries and mutations.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// ListPosts returns one page of posts matching the query filters.
func (p *PostController) ListPosts(ctx *gin.Context) {
	filters, ok := parsePostFilters(ctx)
	if !ok {
		return
	}
	list, err := p.posts.ListPosts(ctx.Request.Context(), filters, parsePagination(ctx))
	if err != nil {
		respondError(ctx, err, "Failed to fetch posts")
		return
	}
	utils.Success(ctx, "Posts fetched successfully", list)
}

// GetPost returns a post with its approved comments and counts the view.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to fetch post")
		return
	}
	utils.Success(ctx, "Post fetched successfully", post)
}

// GetMyPosts lists every post of an active author.
func (p *PostController) GetMyPosts(ctx *gin.Context) {
	posts, err := p.posts.GetMyPosts(ctx.Request.Context(), ctx.Param("authorId"))
	if err != nil {
		respondError(ctx, err, "Failed to fetch posts")
		return
	}
	utils.Success(ctx, "Posts fetched successfully", posts)
}

// GetStats reports aggregate content and user counters.
func (p *PostController) GetStats(ctx *gin.Context) {
	stats, err := p.posts.GetStats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to fetch stats")
		return
	}
	utils.Success(ctx, "Stats fetched successfully", stats)
}

// CreatePost stores a post owned by the caller.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, _, ok := caller(ctx)
	if !ok {
		return
	}
	var in services.PostInput
	if !bindJSON(ctx, &in) {
		return
	}
	post, err := p.posts.CreatePost(ctx.Request.Context(), in, userID)
	if err != nil {
		respondError(ctx, err, "Failed to create post")
		return
	}
	utils.Created(ctx, "Post created successfully", post)
}

// UpdatePost applies a partial update. Only admins can change isFeatured.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, isAdmin, ok := caller(ctx)
	if !ok {
		return
	}
	var patch models.PostPatch
	if !bindJSON(ctx, &patch) {
		return
	}
	post, err := p.posts.UpdatePost(ctx.Request.Context(), ctx.Param("id"), patch, userID, isAdmin)
	if err != nil {
		respondError(ctx, err, "Failed to update post")
		return
	}
	utils.Success(ctx, "Post updated successfully", post)
}

// DeletePost removes a post and its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, isAdmin, ok := caller(ctx)
	if !ok {
		return
	}
	if err := p.posts.DeletePost(ctx.Request.Context(), ctx.Param("id"), userID, isAdmin); err != nil {
		respondError(ctx, err, "Failed to delete post")
		return
	}
	utils.Success(ctx, "Post deleted successfully", nil)
}

// parsePagination keeps unparsable numbers absent so the defaults apply.
// Parsed values, including zero and negatives, pass through untouched.
func parsePagination(ctx *gin.Context) query.PaginationOptions {
	opts := query.PaginationOptions{
		SortBy:    strings.TrimSpace(ctx.Query("sortBy")),
		SortOrder: strings.TrimSpace(ctx.Query("sortOrder")),
	}
	if v, err := strconv.Atoi(ctx.Query("page")); err == nil {
		opts.Page = &v
	}
	if v, err := strconv.Atoi(ctx.Query("limit")); err == nil {
		opts.Limit = &v
	}
	return opts
}

func parsePostFilters(ctx *gin.Context) (query.PostFilters, bool) {
	f := query.PostFilters{
		Search:   strings.TrimSpace(ctx.Query("search")),
		AuthorID: strings.TrimSpace(ctx.Query("authorId")),
	}
	if raw := ctx.Query("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	switch ctx.Query("isFeatured") {
	case "true":
		v := true
		f.IsFeatured = &v
	case "false":
		v := false
		f.IsFeatured = &v
	}
	if raw := strings.TrimSpace(ctx.Query("status")); raw != "" {
		status := models.PostStatus(strings.ToUpper(raw))
		if !status.Valid() {
			utils.Fail(ctx, http.StatusBadRequest, services.ErrValidation.Message, map[string][]string{
				"status": {"Status must be one of DRAFT, PUBLISHED, ARCHIVED"},
			})
			return f, false
		}
		f.Status = status
	}
	return f, true
}
