package handler

import (
	"github.com/gin-gonic/gin"

	"anime-api/internal/app"
	"anime-api/internal/metrics"
	"anime-api/internal/transport/http/middleware"
	"anime-api/internal/transport/http/response"
)

type PostHandler struct {
	postService *app.PostService
}

// CreatePostRequest has no owner field; the owner is the caller.
type CreatePostRequest struct {
	Title       string  `json:"title" binding:"required,max=256"`
	EmbedURL    string  `json:"embed_url" binding:"required"`
	Description *string `json:"description"`
}

type ListPostsQuery struct {
	Skip  int  `form:"skip"`
	Limit *int `form:"limit"`
}

func NewPostHandler(postService *app.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

func (h *PostHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RejectUnauthorized(c, app.ErrMissingCredential)
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	post, err := h.postService.Create(c.Request.Context(), user, app.CreatePostInput{
		Title:       req.Title,
		EmbedURL:    req.EmbedURL,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err, "create post failed")
		return
	}
	metrics.IncPostsCreated()

	response.OK(c, post)
}

func (h *PostHandler) List(c *gin.Context) {
	var query ListPostsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	posts, err := h.postService.List(c.Request.Context(), app.ListPostsInput{
		Skip:  query.Skip,
		Limit: query.Limit,
	})
	if err != nil {
		writeError(c, err, "list posts failed")
		return
	}

	response.OK(c, posts)
}
