package http

import (
	"errors"
	"net/http"
	"strconv"

	"sns-crosspost/domain/model"
	"sns-crosspost/infrastructure/imaging"
	"sns-crosspost/infrastructure/logger"
	"sns-crosspost/usecase"

	"github.com/gin-gonic/gin"
)

// genericErrorMessage is what fatal pipeline errors look like to the caller.
// Full detail stays in the server log.
const genericErrorMessage = "an error occurred while processing the post, please try again later"

type IPostHandler interface {
	Upload(ctx *gin.Context)
	List(ctx *gin.Context)
	Get(ctx *gin.Context)
	Delete(ctx *gin.Context)
	GetPlatforms(ctx *gin.Context)
}

type PostHandler struct {
	postUsecase usecase.IPostUsecase
}

func NewPostHandler(uc usecase.IPostUsecase) IPostHandler {
	return &PostHandler{postUsecase: uc}
}

// Upload accepts a multipart form with an image file and an optional caption,
// runs the publish pipeline and returns per-platform results. Per-platform
// failures still produce a 200: the record exists, the flags tell the story.
func (h *PostHandler) Upload(ctx *gin.Context) {
	file, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no image file provided"})
		return
	}
	caption := ctx.PostForm("caption")

	res, err := h.postUsecase.Publish(ctx.Request.Context(), file, caption)
	if err != nil {
		h.writePublishError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (h *PostHandler) writePublishError(ctx *gin.Context, err error) {
	var validationErr *usecase.ValidationError
	var capacityErr *imaging.CapacityError
	switch {
	case errors.As(err, &validationErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationErr.Reason})
	case errors.As(err, &capacityErr):
		logger.GetLogger().WithField("error", err).Warn("upload rejected: resize capacity exceeded")
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "image too large, please upload a smaller image"})
	case errors.Is(err, imaging.ErrDecode), errors.Is(err, imaging.ErrUnsupportedFormat):
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "not a valid image file"})
	default:
		logger.GetLogger().WithField("error", err).Error("publish pipeline failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": genericErrorMessage})
	}
}

func (h *PostHandler) List(ctx *gin.Context) {
	page := intQuery(ctx, "page", 1)
	perPage := intQuery(ctx, "per_page", 20)

	res, err := h.postUsecase.ListPosts(ctx.Request.Context(), page, perPage)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing posts failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": genericErrorMessage})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "posts": res.Posts, "pagination": res.Pagination})
}

func (h *PostHandler) Get(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid post id"})
		return
	}
	post, err := h.postUsecase.GetPost(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "error": "post not found"})
			return
		}
		logger.GetLogger().WithField("post_id", id).WithField("error", err).Error("fetching post failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": genericErrorMessage})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "post": post})
}

func (h *PostHandler) Delete(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid post id"})
		return
	}
	res, err := h.postUsecase.DeletePost(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "error": "post not found"})
			return
		}
		logger.GetLogger().WithField("post_id", id).WithField("error", err).Error("deleting post failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": genericErrorMessage})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message, "deleted_files": res.DeletedFiles, "failed_files": res.FailedFiles})
}

// GetPlatforms reports the publishing targets and their image bounds.
func (h *PostHandler) GetPlatforms(ctx *gin.Context) {
	caps := make([]gin.H, 0, len(model.Platforms))
	for _, p := range model.Platforms {
		spec := imaging.PlatformSpecs[p]
		caps = append(caps, gin.H{"platform": p, "max_width": spec.MaxWidth, "max_height": spec.MaxHeight})
	}
	ctx.JSON(http.StatusOK, gin.H{"platforms": caps})
}

func intQuery(ctx *gin.Context, name string, def int) int {
	v := ctx.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
