package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sns-crosspost/domain/model"

	"github.com/lib/pq"
)

// PostRepository implements the publish record store on PostgreSQL.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository { return &PostRepository{db: db} }

const postColumns = `id, image_filename, image_path, caption,
	instagram_status, instagram_post_id, instagram_error,
	twitter_status, twitter_post_id, twitter_error,
	facebook_status, facebook_post_id, facebook_error, created_at`

// CreatePost inserts the post row (all statuses pending) and its rendition
// rows in one transaction. Either everything commits or nothing does; the
// caller is responsible for cleaning up rendition files on error.
func (r *PostRepository) CreatePost(ctx context.Context, post *model.Post, renditions []model.Rendition) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO posts (image_filename, image_path, caption,
			instagram_status, twitter_status, facebook_status, created_at)
		 VALUES ($1, $2, $3, 'pending', 'pending', 'pending', $4)
		 RETURNING id`,
		post.ImageFilename, post.ImagePath, post.Caption, now,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	for _, rend := range renditions {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO renditions (post_id, platform, resized_path, width, height)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, string(rend.Platform), rend.ResizedPath, rend.Width, rend.Height,
		); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	post.ID = id
	post.CreatedAt = now
	return id, nil
}

// UpdatePlatformOutcome writes only the given platform's status, external id
// and error columns. Other platforms' columns are never touched, so concurrent
// publishers on the same post cannot lose each other's updates.
func (r *PostRepository) UpdatePlatformOutcome(ctx context.Context, postID int64, platform model.Platform, outcome model.PublishOutcome) error {
	statusCol, idCol, errCol, err := platformColumns(platform)
	if err != nil {
		return err
	}
	var externalID, errMsg sql.NullString
	if outcome.Success {
		externalID = sql.NullString{String: outcome.PostID, Valid: outcome.PostID != ""}
	} else {
		errMsg = sql.NullString{String: outcome.ErrorMessage, Valid: outcome.ErrorMessage != ""}
	}
	q := fmt.Sprintf(`UPDATE posts SET %s=$1, %s=$2, %s=$3 WHERE id=$4`, statusCol, idCol, errCol)
	_, err = r.db.ExecContext(ctx, q, outcome.Status(), externalID, errMsg, postID)
	return err
}

func (r *PostRepository) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id)
	post, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	rends, err := r.loadRenditions(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	post.Renditions = rends[id]
	return post, nil
}

// ListPosts returns one page, newest first, plus the total row count.
// Page is clamped to >=1 and perPage to [1,100].
func (r *PostRepository) ListPosts(ctx context.Context, page, perPage int) ([]*model.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	} else if perPage > 100 {
		perPage = 100
	}
	offset := (page - 1) * perPage

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []*model.Post
	var ids []int64
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
		ids = append(ids, post.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		rends, err := r.loadRenditions(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, p := range posts {
			p.Renditions = rends[p.ID]
		}
	}
	return posts, total, nil
}

// DeletePost removes the post row; rendition rows go with it via ON DELETE
// CASCADE. File cleanup is the caller's concern.
func (r *PostRepository) DeletePost(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostRepository) loadRenditions(ctx context.Context, postIDs []int64) (map[int64][]model.Rendition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, post_id, platform, resized_path, width, height
		 FROM renditions WHERE post_id = ANY($1) ORDER BY platform ASC`,
		pq.Array(postIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]model.Rendition, len(postIDs))
	for rows.Next() {
		var rend model.Rendition
		var platform string
		if err := rows.Scan(&rend.ID, &rend.PostID, &platform, &rend.ResizedPath, &rend.Width, &rend.Height); err != nil {
			return nil, err
		}
		rend.Platform = model.Platform(platform)
		out[rend.PostID] = append(out[rend.PostID], rend)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	post := &model.Post{}
	var igID, igErr, twID, twErr, fbID, fbErr sql.NullString
	err := row.Scan(
		&post.ID, &post.ImageFilename, &post.ImagePath, &post.Caption,
		&post.InstagramStatus, &igID, &igErr,
		&post.TwitterStatus, &twID, &twErr,
		&post.FacebookStatus, &fbID, &fbErr,
		&post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	post.InstagramPostID = nullablePtr(igID)
	post.InstagramError = nullablePtr(igErr)
	post.TwitterPostID = nullablePtr(twID)
	post.TwitterError = nullablePtr(twErr)
	post.FacebookPostID = nullablePtr(fbID)
	post.FacebookError = nullablePtr(fbErr)
	return post, nil
}

func nullablePtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func platformColumns(p model.Platform) (statusCol, idCol, errCol string, err error) {
	switch p {
	case model.PlatformInstagram:
		return "instagram_status", "instagram_post_id", "instagram_error", nil
	case model.PlatformTwitter:
		return "twitter_status", "twitter_post_id", "twitter_error", nil
	case model.PlatformFacebook:
		return "facebook_status", "facebook_post_id", "facebook_error", nil
	default:
		return "", "", "", fmt.Errorf("unknown platform: %s", p)
	}
}
