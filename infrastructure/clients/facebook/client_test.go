package facebook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sns-crosspost/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempImage(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facebook_pic.png")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestPublish_SendsMultipartPhoto(t *testing.T) {
	imageBytes := []byte("fake image payload")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/page_42/photos", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "my caption", r.FormValue("message"))
		assert.Equal(t, "page-token", r.FormValue("access_token"))

		file, _, err := r.FormFile("source")
		require.NoError(t, err)
		defer file.Close()
		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, imageBytes, got)

		w.Write([]byte(`{"id":"fb_post_1","post_id":"page_42_99"}`))
	}))
	defer srv.Close()

	client := NewClient("page_42", "page-token", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	outcome := client.Publish(context.Background(), repository.PublishRequest{
		FilePath: writeTempImage(t, imageBytes),
		Caption:  "my caption",
	})

	require.True(t, outcome.Success, "outcome error: %s", outcome.ErrorMessage)
	assert.Equal(t, "fb_post_1", outcome.PostID)
}

func TestPublish_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Permissions error","code":200}}`))
	}))
	defer srv.Close()

	client := NewClient("page_42", "page-token", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	outcome := client.Publish(context.Background(), repository.PublishRequest{
		FilePath: writeTempImage(t, []byte("x")),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "Permissions error")
}

func TestPublish_ErrorObjectWithOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"Duplicate status message"}}`))
	}))
	defer srv.Close()

	client := NewClient("page_42", "page-token", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	outcome := client.Publish(context.Background(), repository.PublishRequest{
		FilePath: writeTempImage(t, []byte("x")),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "Duplicate status message")
}

func TestPublish_UnreadableFile(t *testing.T) {
	client := NewClient("page_42", "page-token")

	outcome := client.Publish(context.Background(), repository.PublishRequest{
		FilePath: filepath.Join(t.TempDir(), "missing.png"),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "reading image file")
}
