package repository

import (
	"context"

	"sns-crosspost/domain/model"
)

// PublishRequest carries what a platform client needs to post one image.
// Facebook and Twitter read the rendition bytes from FilePath; Instagram's
// Graph API fetches the image itself, so it gets the publicly reachable
// PublicURL instead. Both are always populated.
type PublishRequest struct {
	FilePath  string
	PublicURL string
	Caption   string
}

// IPublisher is the shared contract over the three publishing protocols.
// Remote-side failures come back as a failed outcome, never as an error;
// the orchestrator stays protocol-agnostic.
type IPublisher interface {
	Platform() model.Platform
	Publish(ctx context.Context, req PublishRequest) model.PublishOutcome
}

// IRenditions produces one resized copy of the source image per platform.
type IRenditions interface {
	Generate(ctx context.Context, sourcePath, baseFilename string) (map[model.Platform]model.Rendition, error)
}
