package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/purgo-board/apiserver/types"
)

const postDetailSelect = `
	SELECT p.id, p.user_id, p.title, p.content, p.view_count, p.created_at, p.updated_at,
	       u.login_id, u.username,
	       (SELECT COUNT(1) FROM comments c WHERE c.post_id = p.id) AS comment_count
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// PostRepository handles persistence for posts.
type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// List returns posts newest first with author and comment count.
func (r *PostRepository) List(ctx context.Context, offset, limit int) ([]types.PostDetail, int, error) {
	return r.listWhere(ctx, "", nil, offset, limit)
}

// Search matches keyword against title or content, case-insensitively.
func (r *PostRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]types.PostDetail, int, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	return r.listWhere(ctx, `p.title ILIKE $1 OR p.content ILIKE $1`, []any{pattern}, offset, limit)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID, offset, limit int) ([]types.PostDetail, int, error) {
	return r.listWhere(ctx, `p.user_id = $1`, []any{userID}, offset, limit)
}

func (r *PostRepository) listWhere(ctx context.Context, where string, args []any, offset, limit int) ([]types.PostDetail, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	whereClause := ""
	if where != "" {
		whereClause = " WHERE " + where
	}

	countQuery := `SELECT COUNT(1) FROM posts p` + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	listQuery := postDetailSelect + whereClause +
		` ORDER BY p.created_at DESC, p.id DESC OFFSET ` + placeholder(n+1) + ` LIMIT ` + placeholder(n+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]types.PostDetail, 0, limit)
	for rows.Next() {
		post, err := scanPostDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostDetail(row rowScanner) (types.PostDetail, error) {
	var post types.PostDetail
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.Title,
		&post.Content,
		&post.ViewCount,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.AuthorLoginID,
		&post.AuthorUsername,
		&post.CommentCount,
	)
	return post, err
}

func (r *PostRepository) GetDetail(ctx context.Context, id int) (types.PostDetail, error) {
	post, err := scanPostDetail(r.db.QueryRowContext(ctx, postDetailSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PostDetail{}, ErrNotFound
		}
		return types.PostDetail{}, err
	}
	return post, nil
}

func (r *PostRepository) Get(ctx context.Context, id int) (types.Post, error) {
	const query = `
		SELECT id, user_id, title, content, view_count, created_at, updated_at
		FROM posts
		WHERE id = $1`
	var post types.Post
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.UserID,
		&post.Title,
		&post.Content,
		&post.ViewCount,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.ViewCount = 0

	const query = `
		INSERT INTO posts (user_id, title, content, view_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		post.UserID,
		post.Title,
		post.Content,
		post.ViewCount,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// Update writes title and content. The view counter is left untouched.
func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	post.UpdatedAt = time.Now()

	const query = `
		UPDATE posts
		SET title = $1,
			content = $2,
			updated_at = $3
		WHERE id = $4
		RETURNING view_count, created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		post.Title,
		post.Content,
		post.UpdatedAt,
		post.ID,
	).Scan(&post.ViewCount, &post.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) IncrementViews(ctx context.Context, id int) error {
	const query = `UPDATE posts SET view_count = view_count + 1 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
