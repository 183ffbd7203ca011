package model

import "time"

// Platform identifies one of the supported publishing targets.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
)

// Platforms lists all targets in a stable order.
var Platforms = []Platform{PlatformInstagram, PlatformTwitter, PlatformFacebook}

// Publish statuses per platform.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Post represents one user submission and its per-platform publish state.
// All three statuses start at pending atomically with row creation; each
// platform is attempted exactly once per pipeline invocation.
type Post struct {
	ID            int64     `json:"id"`
	ImageFilename string    `json:"image_filename"`
	ImagePath     string    `json:"image_path"`
	Caption       string    `json:"caption"`
	CreatedAt     time.Time `json:"created_at"`
	// ImageURL is derived from the configured base URL, never persisted.
	ImageURL string `json:"image_url,omitempty"`

	InstagramStatus string  `json:"instagram_status"`
	InstagramPostID *string `json:"instagram_post_id,omitempty"`
	InstagramError  *string `json:"instagram_error,omitempty"`

	TwitterStatus string  `json:"twitter_status"`
	TwitterPostID *string `json:"twitter_post_id,omitempty"`
	TwitterError  *string `json:"twitter_error,omitempty"`

	FacebookStatus string  `json:"facebook_status"`
	FacebookPostID *string `json:"facebook_post_id,omitempty"`
	FacebookError  *string `json:"facebook_error,omitempty"`

	Renditions []Rendition `json:"renditions,omitempty"`
}

// Rendition is one resized copy of a Post's image for one platform.
// Exactly one rendition exists per (post, platform) pair once creation commits.
type Rendition struct {
	ID          int64    `json:"id"`
	PostID      int64    `json:"post_id"`
	Platform    Platform `json:"platform"`
	ResizedPath string   `json:"resized_path"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	// PublicURL is derived from the configured base URL, never persisted.
	PublicURL string `json:"public_url,omitempty"`
}

// PublishOutcome is the per-platform result of a publish attempt. Remote
// failures are captured here, not surfaced as errors to the orchestrator.
type PublishOutcome struct {
	Success      bool   `json:"success"`
	PostID       string `json:"post_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Status maps an outcome onto the stored per-platform status value.
func (o PublishOutcome) Status() string {
	if o.Success {
		return StatusSuccess
	}
	return StatusFailed
}
