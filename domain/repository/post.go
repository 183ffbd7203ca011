package repository

import (
	"context"

	"sns-crosspost/domain/dto"
	"sns-crosspost/domain/model"
)

// IPost is the publish record store. CreatePost is atomic: the post row and
// all rendition rows commit together or not at all.
type IPost interface {
	CreatePost(ctx context.Context, post *model.Post, renditions []model.Rendition) (int64, error)
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	// ListPosts clamps page to >=1 and perPage to [1,100] and returns the
	// page plus the total row count, newest first.
	ListPosts(ctx context.Context, page, perPage int) ([]*model.Post, int64, error)
	// UpdatePlatformOutcome writes only the given platform's status, external
	// id and error columns. Idempotent, last write wins.
	UpdatePlatformOutcome(ctx context.Context, postID int64, platform model.Platform, outcome model.PublishOutcome) error
	DeletePost(ctx context.Context, id int64) error
}

// IPostCache caches listing pages. Implementations must tolerate an absent
// backend (every method a no-op / miss).
type IPostCache interface {
	GetListing(ctx context.Context, page, perPage int) (*dto.PostListResponse, bool)
	SetListing(ctx context.Context, page, perPage int, res *dto.PostListResponse)
	Invalidate(ctx context.Context)
}
