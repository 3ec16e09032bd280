// Package postgres is the PostgreSQL post store for the dev backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"Tally/internal/core/dates"
	"Tally/internal/core/posts"
	"Tally/internal/core/trending"
	"Tally/internal/db/seed"
)

const (
	trendingWindowDays = 7
	// trending ranks only the newest posts
	trendingCandidates = 500

	pqForeignKeyViolation = "23503"
)

// postColumns selects a post joined with its author. $1 is always the viewer.
const postColumns = `
	p.id, p.title, p.content, p.image_path, p.likes_count, p.comments_count, p.is_pinned, p.created_at,
	u.id, u.name, u.email, u.followers_count,
	EXISTS(SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1) AS is_liked,
	EXISTS(SELECT 1 FROM follows f WHERE f.user_id = u.id AND f.follower_id = $1) AS is_following
`

type postgresPostRepo struct {
	db  *sql.DB
	now func() time.Time
}

// PostRepository is the PostgreSQL repository plus the write methods used to seed it
type PostRepository interface {
	posts.Repository
	seed.Store
	CountPosts(ctx context.Context) (int, error)
}

// NewPostRepository creates a new PostgreSQL post repository. A nil clock uses time.Now.
func NewPostRepository(db *sql.DB, now func() time.Time) PostRepository {
	if now == nil {
		now = time.Now
	}
	return &postgresPostRepo{db: db, now: now}
}

// AddUser inserts or updates u, assigning an id when it has none
func (r *postgresPostRepo) AddUser(ctx context.Context, u posts.User) (posts.User, error) {
	if u.ID.IsZero() {
		u.ID = posts.ID(uuid.NewString())
	}
	u.IsFollowing = false
	u.Normalize()

	query := `
		INSERT INTO users (id, name, email, followers_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email
	`
	if _, err := r.db.ExecContext(ctx, query, u.ID.String(), u.Name, u.Email, u.FollowersCount); err != nil {
		return posts.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// AddPost inserts p, assigning an id when it has none
func (r *postgresPostRepo) AddPost(ctx context.Context, p posts.Post, createdAt time.Time) (posts.Post, error) {
	if p.ID.IsZero() {
		p.ID = posts.ID(uuid.NewString())
	}
	p.IsLiked = false
	p.Normalize()

	query := `
		INSERT INTO posts (
			id, author_id, title, content, image_path,
			likes_count, comments_count, is_pinned, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.AuthorID.String(), p.Title, p.Content, nullString(p.ImagePath),
		p.LikesCount, p.CommentsCount, p.IsPinned, createdAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return posts.Post{}, posts.NewValidationError("author_id", fmt.Sprintf("author %s not found", p.AuthorID))
		}
		return posts.Post{}, fmt.Errorf("failed to insert post: %w", err)
	}
	return p, nil
}

// CountPosts returns the number of stored posts
func (r *postgresPostRepo) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

func (r *postgresPostRepo) List(ctx context.Context, viewerID posts.ID, q posts.ListQuery) (*posts.ListResult, error) {
	if q.Type == "" {
		q.Type = posts.SearchAll
	}
	if !q.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", posts.ErrInvalidSearchType, q.Type)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > 100 {
		return nil, posts.NewValidationError("per_page", "per_page must be between 1 and 100")
	}

	search := strings.TrimSpace(q.Search)
	result := &posts.ListResult{}

	total := 0
	if q.Type.IncludesPosts() {
		where, filterArgs := listFilter(q.AuthorID, search, 0)
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p `+where, filterArgs...).Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to count posts: %w", err)
		}

		where, filterArgs = listFilter(q.AuthorID, search, 1)
		args := append([]any{viewerID.String()}, filterArgs...)
		args = append(args, q.PerPage, (q.Page-1)*q.PerPage)
		query := fmt.Sprintf(`
			SELECT %s
			FROM posts p
			JOIN users u ON u.id = p.author_id
			%s
			ORDER BY p.created_at DESC, p.id
			LIMIT $%d OFFSET $%d
		`, postColumns, where, len(args)-1, len(args))

		views, err := r.queryPosts(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		result.Posts = views
	}

	if q.Type.IncludesUsers() && search != "" {
		users, err := r.searchUsers(ctx, viewerID, search)
		if err != nil {
			return nil, err
		}
		result.Users = users
	}

	if q.Page == 1 && search == "" && q.AuthorID.IsZero() {
		query := fmt.Sprintf(`
			SELECT %s
			FROM posts p
			JOIN users u ON u.id = p.author_id
			WHERE p.is_pinned
			ORDER BY p.created_at DESC, p.id
		`, postColumns)

		pinned, err := r.queryPosts(ctx, query, viewerID.String())
		if err != nil {
			return nil, err
		}
		result.Pinned = pinned
	}

	lastPage := max((total+q.PerPage-1)/q.PerPage, 1)
	result.Info = posts.PageInfo{
		CurrentPage: q.Page,
		LastPage:    lastPage,
		PerPage:     q.PerPage,
		Total:       total,
		HasNextPage: q.Page < lastPage,
		HasPrevPage: q.Page > 1,
	}
	return result, nil
}

// listFilter builds the WHERE clause for List with placeholders numbered
// after the first offset arguments
func listFilter(authorID posts.ID, search string, offset int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !authorID.IsZero() {
		args = append(args, authorID.String())
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", offset+len(args)))
	}
	if search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := offset + len(args)
		conds = append(conds, fmt.Sprintf("(p.title ILIKE $%d OR p.content ILIKE $%d)", n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *postgresPostRepo) searchUsers(ctx context.Context, viewerID posts.ID, search string) ([]posts.User, error) {
	query := `
		SELECT u.id, u.name, u.email, u.followers_count,
			EXISTS(SELECT 1 FROM follows f WHERE f.user_id = u.id AND f.follower_id = $1)
		FROM users u
		WHERE u.name ILIKE $2 OR u.email ILIKE $2
		ORDER BY u.name, u.id
	`
	rows, err := r.db.QueryContext(ctx, query, viewerID.String(), "%"+escapeLike(search)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []posts.User
	for rows.Next() {
		var u posts.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.FollowersCount, &u.IsFollowing); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Trending ranks the newest posts with the same tiers the client uses locally
func (r *postgresPostRepo) Trending(ctx context.Context, viewerID posts.ID, limit int) ([]posts.PostView, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC, p.id
		LIMIT $2
	`, postColumns)

	views, err := r.queryPosts(ctx, query, viewerID.String(), trendingCandidates)
	if err != nil {
		return nil, err
	}

	byID := make(map[posts.ID]posts.PostView, len(views))
	candidates := make([]posts.Post, 0, len(views))
	for _, v := range views {
		byID[v.ID] = v
		candidates = append(candidates, v.Post)
	}

	ranking := trending.NewRanker(r.now).Rank(candidates, trendingWindowDays, limit)
	out := make([]posts.PostView, 0, len(ranking.Candidates))
	for _, p := range ranking.Posts() {
		out = append(out, byID[p.ID])
	}
	return out, nil
}

func (r *postgresPostRepo) ToggleLike(ctx context.Context, viewerID, postID posts.ID) (bool, int, error) {
	var liked bool
	var count int

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT likes_count FROM posts WHERE id = $1 FOR UPDATE`, postID.String()).Scan(&count)
		if err == sql.ErrNoRows {
			return posts.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock post: %w", err)
		}

		liked, err = toggleRow(ctx, tx,
			`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
			`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`,
			postID.String(), viewerID.String())
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx,
			`UPDATE posts SET likes_count = GREATEST(likes_count + $2, 0) WHERE id = $1 RETURNING likes_count`,
			postID.String(), delta(liked),
		).Scan(&count)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func (r *postgresPostRepo) ToggleFollow(ctx context.Context, viewerID, userID posts.ID) (bool, int, error) {
	if viewerID == userID {
		return false, 0, posts.ErrSelfFollow
	}

	var following bool
	var count int

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT followers_count FROM users WHERE id = $1 FOR UPDATE`, userID.String()).Scan(&count)
		if err == sql.ErrNoRows {
			return posts.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		following, err = toggleRow(ctx, tx,
			`DELETE FROM follows WHERE user_id = $1 AND follower_id = $2`,
			`INSERT INTO follows (user_id, follower_id) VALUES ($1, $2)`,
			userID.String(), viewerID.String())
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx,
			`UPDATE users SET followers_count = GREATEST(followers_count + $2, 0) WHERE id = $1 RETURNING followers_count`,
			userID.String(), delta(following),
		).Scan(&count)
	})
	if err != nil {
		return false, 0, err
	}
	return following, count, nil
}

func (r *postgresPostRepo) Delete(ctx context.Context, viewerID, postID posts.ID) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var authorID string
		err := tx.QueryRowContext(ctx, `SELECT author_id FROM posts WHERE id = $1 FOR UPDATE`, postID.String()).Scan(&authorID)
		if err == sql.ErrNoRows {
			return posts.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock post: %w", err)
		}
		if posts.ID(authorID) != viewerID {
			return posts.ErrForbidden
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID.String()); err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		return nil
	})
}

func (r *postgresPostRepo) queryPosts(ctx context.Context, query string, args ...any) ([]posts.PostView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	now := r.now()
	var views []posts.PostView
	for rows.Next() {
		var (
			p         posts.Post
			author    posts.User
			imagePath sql.NullString
			createdAt time.Time
		)
		err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &imagePath, &p.LikesCount, &p.CommentsCount, &p.IsPinned, &createdAt,
			&author.ID, &author.Name, &author.Email, &author.FollowersCount,
			&p.IsLiked, &author.IsFollowing,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		if imagePath.Valid {
			p.ImagePath = &imagePath.String
		}
		p.AuthorID = author.ID
		p.CreatedAt = dates.Humanize(createdAt, now)
		views = append(views, posts.PostView{Post: p, Author: &author})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return views, nil
}

func (r *postgresPostRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// toggleRow deletes the row if present, otherwise inserts it.
// Reports whether the row exists afterwards.
func toggleRow(ctx context.Context, tx *sql.Tx, deleteQuery, insertQuery string, args ...any) (bool, error) {
	res, err := tx.ExecContext(ctx, deleteQuery, args...)
	if err != nil {
		return false, fmt.Errorf("failed to toggle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to toggle: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
		return false, fmt.Errorf("failed to toggle: %w", err)
	}
	return true, nil
}

func delta(on bool) int {
	if on {
		return 1
	}
	return -1
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes ILIKE wildcards in user input
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
