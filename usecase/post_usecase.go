package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// Raster decoders for the content-sniffing check.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"sns-crosspost/domain/dto"
	"sns-crosspost/domain/model"
	"sns-crosspost/domain/repository"
	"sns-crosspost/infrastructure/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound signals a missing post id.
var ErrNotFound = errors.New("post not found")

// ValidationError rejects a submission before any work happens. Its reason is
// safe to echo to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

var allowedExtensions = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}}

type IPostUsecase interface {
	Publish(ctx context.Context, file *multipart.FileHeader, caption string) (*dto.UploadResponse, error)
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	ListPosts(ctx context.Context, page, perPage int) (*dto.PostListResponse, error)
	DeletePost(ctx context.Context, id int64) (*dto.DeleteResponse, error)
}

type postUsecase struct {
	postRepo    repository.IPost
	cache       repository.IPostCache
	renditions  repository.IRenditions
	publishers  []repository.IPublisher
	uploadDir   string
	baseURL     string
	maxFileSize int64
}

func NewPostUsecase(
	postRepo repository.IPost,
	cache repository.IPostCache,
	renditions repository.IRenditions,
	publishers []repository.IPublisher,
	uploadDir, baseURL string,
	maxFileSize int64,
) IPostUsecase {
	return &postUsecase{
		postRepo:    postRepo,
		cache:       cache,
		renditions:  renditions,
		publishers:  publishers,
		uploadDir:   uploadDir,
		baseURL:     baseURL,
		maxFileSize: maxFileSize,
	}
}

// Publish runs the pipeline: validate, save the original, derive renditions,
// persist the record, then fan out to the platform publishers. Steps before
// the commit are fatal and leave no rows and no files behind; per-platform
// failures after the commit are isolated and only recorded.
func (u *postUsecase) Publish(ctx context.Context, file *multipart.FileHeader, caption string) (*dto.UploadResponse, error) {
	if err := u.validate(file); err != nil {
		return nil, err
	}

	filename := safeFilename(file.Filename)
	originalPath := filepath.Join(u.uploadDir, filename)
	cleanup := &cleanupList{}

	if err := saveUpload(file, originalPath); err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	cleanup.add(originalPath)

	rends, err := u.renditions.Generate(ctx, originalPath, filename)
	if err != nil {
		cleanup.run()
		return nil, err
	}
	ordered := make([]model.Rendition, 0, len(model.Platforms))
	for _, platform := range model.Platforms {
		rend := rends[platform]
		cleanup.add(rend.ResizedPath)
		ordered = append(ordered, rend)
	}

	post := &model.Post{
		ImageFilename:   filename,
		ImagePath:       originalPath,
		Caption:         caption,
		InstagramStatus: model.StatusPending,
		TwitterStatus:   model.StatusPending,
		FacebookStatus:  model.StatusPending,
	}
	postID, err := u.postRepo.CreatePost(ctx, post, ordered)
	if err != nil {
		// Compensating cleanup: the files were provisional until the commit.
		cleanup.run()
		return nil, fmt.Errorf("creating post record: %w", err)
	}
	if u.cache != nil {
		u.cache.Invalidate(ctx)
	}

	// The record is committed; a caller abort must not cancel the publish
	// attempts or roll anything back, so the fan-out runs detached from the
	// request context.
	pubCtx := context.WithoutCancel(ctx)
	results := make(map[model.Platform]dto.PlatformResult, len(u.publishers))
	var mu sync.Mutex
	g := new(errgroup.Group)
	for _, publisher := range u.publishers {
		publisher := publisher
		g.Go(func() error {
			platform := publisher.Platform()
			rend := rends[platform]
			outcome := publisher.Publish(pubCtx, repository.PublishRequest{
				FilePath:  rend.ResizedPath,
				PublicURL: u.publicURL(rend.ResizedPath),
				Caption:   caption,
			})
			if !outcome.Success {
				logger.GetLogger().
					WithField("post_id", postID).
					WithField("platform", platform).
					WithField("error", outcome.ErrorMessage).
					Warn("platform publish failed")
			}
			if err := u.postRepo.UpdatePlatformOutcome(pubCtx, postID, platform, outcome); err != nil {
				logger.GetLogger().
					WithField("post_id", postID).
					WithField("platform", platform).
					WithField("error", err).
					Error("failed persisting platform outcome")
			}
			mu.Lock()
			results[platform] = dto.PlatformResult{Success: outcome.Success, PostID: outcome.PostID}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logger.GetLogger().WithField("post_id", postID).Info("publish pipeline completed")
	return &dto.UploadResponse{Success: true, PostID: postID, Results: results}, nil
}

func (u *postUsecase) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	post, err := u.postRepo.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.attachURLs(post)
	return post, nil
}

func (u *postUsecase) ListPosts(ctx context.Context, page, perPage int) (*dto.PostListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	} else if perPage > 100 {
		perPage = 100
	}
	if u.cache != nil {
		if cached, ok := u.cache.GetListing(ctx, page, perPage); ok {
			return cached, nil
		}
	}

	posts, total, err := u.postRepo.ListPosts(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		u.attachURLs(post)
	}
	if posts == nil {
		posts = []*model.Post{}
	}
	res := &dto.PostListResponse{
		Posts: posts,
		Pagination: dto.Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: (total + int64(perPage) - 1) / int64(perPage),
		},
	}
	if u.cache != nil {
		u.cache.SetListing(ctx, page, perPage, res)
	}
	return res, nil
}

// DeletePost removes the row (renditions cascade) and then attempts file
// deletion for the original and each rendition. Already-missing files are
// skipped; failures are counted and reported but never abort the deletion.
func (u *postUsecase) DeletePost(ctx context.Context, id int64) (*dto.DeleteResponse, error) {
	post, err := u.postRepo.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := u.postRepo.DeletePost(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.cache != nil {
		u.cache.Invalidate(ctx)
	}

	paths := []string{post.ImagePath}
	for _, rend := range post.Renditions {
		paths = append(paths, rend.ResizedPath)
	}
	deleted, failedCount := 0, 0
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			failedCount++
			logger.GetLogger().WithField("post_id", id).WithField("path", path).WithField("error", err).Warn("failed deleting post file")
			continue
		}
		deleted++
	}

	logger.GetLogger().WithField("post_id", id).WithField("deleted_files", deleted).Info("post deleted")
	msg := "deletion completed"
	if failedCount > 0 {
		msg = "deletion completed (some files could not be removed)"
	}
	return &dto.DeleteResponse{Message: msg, DeletedFiles: deleted, FailedFiles: failedCount}, nil
}

func (u *postUsecase) validate(file *multipart.FileHeader) error {
	if file == nil {
		return &ValidationError{Reason: "no image file provided"}
	}
	if file.Size > u.maxFileSize {
		return &ValidationError{Reason: fmt.Sprintf("file too large (max %dMB)", u.maxFileSize/1024/1024)}
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return &ValidationError{Reason: "file type not allowed (jpg, jpeg, png, gif only)"}
	}
	// The extension is not trusted: the content must decode as one of the
	// supported raster formats.
	f, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return &ValidationError{Reason: "not a valid image file"}
	}
	switch format {
	case "jpeg", "png", "gif":
		return nil
	default:
		return &ValidationError{Reason: "image format not allowed"}
	}
}

func (u *postUsecase) publicURL(path string) string {
	if u.baseURL == "" {
		return ""
	}
	return strings.TrimRight(u.baseURL, "/") + "/uploads/" + filepath.Base(path)
}

func (u *postUsecase) attachURLs(post *model.Post) {
	post.ImageURL = u.publicURL(post.ImagePath)
	for i := range post.Renditions {
		post.Renditions[i].PublicURL = u.publicURL(post.Renditions[i].ResizedPath)
	}
}

func saveUpload(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Close()
}

// safeFilename sanitizes the declared name and appends a timestamp plus a
// random suffix so names never collide and never escape the upload dir.
func safeFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s%s", b.String(), time.Now().Unix(), suffix, ext)
}

// cleanupList tracks provisional files written during the pipeline so every
// abort path before the commit removes them.
type cleanupList struct {
	paths []string
}

func (c *cleanupList) add(path string) { c.paths = append(c.paths, path) }

func (c *cleanupList) run() {
	for _, path := range c.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.GetLogger().WithField("path", path).WithField("error", err).Warn("failed removing provisional file")
		}
	}
}
