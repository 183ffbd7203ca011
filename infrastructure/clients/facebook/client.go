package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"sns-crosspost/domain/model"
	"sns-crosspost/domain/repository"
	"sns-crosspost/infrastructure/logger"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Client publishes a photo to a Facebook page with a single multipart request.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	pageID      string
	accessToken string
}

type Option func(*Client)

// WithBaseURL overrides the Graph endpoint, used by tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

func NewClient(pageID, accessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     defaultBaseURL,
		pageID:      pageID,
		accessToken: accessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Platform() model.Platform { return model.PlatformFacebook }

// Publish uploads the rendition file and caption in one request. Remote
// failures come back as a failed outcome, never as an error.
func (c *Client) Publish(ctx context.Context, req repository.PublishRequest) model.PublishOutcome {
	imageData, err := os.ReadFile(req.FilePath)
	if err != nil {
		return failed(fmt.Sprintf("reading image file: %v", err))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("source", filepath.Base(req.FilePath))
	if err != nil {
		return failed(fmt.Sprintf("building multipart body: %v", err))
	}
	if _, err := part.Write(imageData); err != nil {
		return failed(fmt.Sprintf("building multipart body: %v", err))
	}
	_ = writer.WriteField("message", req.Caption)
	_ = writer.WriteField("access_token", c.accessToken)
	if err := writer.Close(); err != nil {
		return failed(fmt.Sprintf("building multipart body: %v", err))
	}

	url := fmt.Sprintf("%s/%s/photos", c.baseURL, c.pageID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return failed(fmt.Sprintf("building request: %v", err))
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return failed(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var result struct {
		ID    string `json:"id"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		msg := "Unknown error"
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		logger.GetLogger().WithField("status", resp.StatusCode).WithField("error", msg).Warn("facebook publish failed")
		return failed(fmt.Sprintf("Facebook API error: %s", msg))
	}

	return model.PublishOutcome{Success: true, PostID: result.ID}
}

func failed(msg string) model.PublishOutcome {
	return model.PublishOutcome{Success: false, ErrorMessage: msg}
}
