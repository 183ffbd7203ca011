package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"sns-crosspost/domain/model"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostRepository(db), mock
}

func sampleRenditions() []model.Rendition {
	return []model.Rendition{
		{Platform: model.PlatformInstagram, ResizedPath: "uploads/instagram_cat.png", Width: 1080, Height: 540},
		{Platform: model.PlatformTwitter, ResizedPath: "uploads/twitter_cat.png", Width: 1200, Height: 600},
		{Platform: model.PlatformFacebook, ResizedPath: "uploads/facebook_cat.png", Width: 1200, Height: 600},
	}
}

func TestCreatePost_CommitsPostAndRenditions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO posts").
		WithArgs("cat.png", "uploads/cat.png", "hello", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	for _, rend := range sampleRenditions() {
		mock.ExpectExec("INSERT INTO renditions").
			WithArgs(int64(7), string(rend.Platform), rend.ResizedPath, rend.Width, rend.Height).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	post := &model.Post{ImageFilename: "cat.png", ImagePath: "uploads/cat.png", Caption: "hello"}
	id, err := repo.CreatePost(context.Background(), post, sampleRenditions())

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), post.ID)
	assert.False(t, post.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePost_RollsBackOnRenditionFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO posts").
		WithArgs("cat.png", "uploads/cat.png", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO renditions").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	post := &model.Post{ImageFilename: "cat.png", ImagePath: "uploads/cat.png"}
	_, err := repo.CreatePost(context.Background(), post, sampleRenditions())

	require.Error(t, err)
	assert.Zero(t, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePlatformOutcome_SuccessWritesExternalID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE posts SET twitter_status=\$1, twitter_post_id=\$2, twitter_error=\$3 WHERE id=\$4`).
		WithArgs("success", "tw_123", nil, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePlatformOutcome(context.Background(), 9, model.PlatformTwitter,
		model.PublishOutcome{Success: true, PostID: "tw_123"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePlatformOutcome_FailureWritesError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE posts SET instagram_status=\$1, instagram_post_id=\$2, instagram_error=\$3 WHERE id=\$4`).
		WithArgs("failed", nil, "container timed out", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePlatformOutcome(context.Background(), 9, model.PlatformInstagram,
		model.PublishOutcome{Success: false, ErrorMessage: "container timed out"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePlatformOutcome_RejectsUnknownPlatform(t *testing.T) {
	repo, mock := newMockRepo(t)

	err := repo.UpdatePlatformOutcome(context.Background(), 9, model.Platform("myspace"), model.PublishOutcome{})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPosts_ClampsPagination(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	// page=0 -> 1, per_page=500 -> 100, offset 0
	mock.ExpectQuery("SELECT (.+) FROM posts ORDER BY created_at DESC").
		WithArgs(100, 0).
		WillReturnRows(postRows())

	posts, total, err := repo.ListPosts(context.Background(), 0, 500)

	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, int64(0), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPosts_ReturnsPageWithRenditions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))
	rows := postRows().AddRow(
		int64(5), "cat.png", "uploads/cat.png", "hello",
		"success", "ig_1", nil,
		"failed", nil, "rate limited",
		"pending", nil, nil,
		time.Now().UTC(),
	)
	mock.ExpectQuery("SELECT (.+) FROM posts ORDER BY created_at DESC").
		WithArgs(10, 10).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM renditions WHERE post_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "platform", "resized_path", "width", "height"}).
			AddRow(int64(1), int64(5), "facebook", "uploads/facebook_cat.png", 1200, 600).
			AddRow(int64(2), int64(5), "instagram", "uploads/instagram_cat.png", 1080, 540).
			AddRow(int64(3), int64(5), "twitter", "uploads/twitter_cat.png", 1200, 600))

	posts, total, err := repo.ListPosts(context.Background(), 2, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	require.Len(t, posts, 1)
	post := posts[0]
	assert.Equal(t, int64(5), post.ID)
	assert.Equal(t, model.StatusSuccess, post.InstagramStatus)
	require.NotNil(t, post.InstagramPostID)
	assert.Equal(t, "ig_1", *post.InstagramPostID)
	assert.Equal(t, model.StatusFailed, post.TwitterStatus)
	require.NotNil(t, post.TwitterError)
	assert.Equal(t, "rate limited", *post.TwitterError)
	assert.Nil(t, post.FacebookPostID)
	assert.Len(t, post.Renditions, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPost_MissingRowSurfacesErrNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM posts WHERE id=").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetPost(context.Background(), 99)

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePost(t *testing.T) {
	t.Run("deletes existing row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("DELETE FROM posts WHERE id=").
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.DeletePost(context.Background(), 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports missing row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("DELETE FROM posts WHERE id=").
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeletePost(context.Background(), 99)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func postRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "image_filename", "image_path", "caption",
		"instagram_status", "instagram_post_id", "instagram_error",
		"twitter_status", "twitter_post_id", "twitter_error",
		"facebook_status", "facebook_post_id", "facebook_error", "created_at",
	})
}
