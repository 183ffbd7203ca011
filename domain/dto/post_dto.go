package dto

import "sns-crosspost/domain/model"

// PlatformResult is the caller-facing slice of a publish outcome. Error detail
// is recorded server-side only and never echoed back here.
type PlatformResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
}

// UploadResponse is returned by POST /api/posts.
type UploadResponse struct {
	Success bool                              `json:"success"`
	PostID  int64                             `json:"post_id"`
	Results map[model.Platform]PlatformResult `json:"results"`
}

// Pagination describes one listing page.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// PostListResponse is returned by GET /api/posts.
type PostListResponse struct {
	Posts      []*model.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// DeleteResponse reports row deletion plus best-effort file cleanup counts.
type DeleteResponse struct {
	Message      string `json:"message"`
	DeletedFiles int    `json:"deleted_files"`
	FailedFiles  int    `json:"failed_files,omitempty"`
}
