package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// CreatePost inserts a new post document, filling in ID and Date.
// An author that does not exist yields apperror.ErrNotFound.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.Date = time.Now().UTC()
	if post.Likes == nil {
		post.Likes = []model.Like{}
	}
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}

	doc, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("sqlite: encoding post: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, created_unix, doc) VALUES (?, ?, ?, ?)`,
		post.ID,
		post.User,
		post.Date.UnixNano(),
		string(doc),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFoundMsg("User not found")
		}
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}

	return nil
}

// GetPostByID retrieves a post by ID.
// Returns apperror.ErrNotFound if no post exists with that ID.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx, `SELECT doc FROM posts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg("Post not found")
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return p, nil
}

// ListPosts returns every post, newest first.
func (db *DB) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc FROM posts ORDER BY created_unix DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// UpdatePost loads post id, applies fn and writes the result back inside one
// transaction.
//
// ATOMICITY
//
// The pool holds a single connection, so the transaction owns the database
// from the SELECT to the COMMIT. A second UpdatePost on the same post waits
// for the connection and then loads the already-written document:
//
//	like A: BEGIN → load (0 likes) → fn appends → UPDATE → COMMIT
//	like B:                                                  BEGIN → load (1 like) → fn: "already liked"
//
// Rules checked inside fn ("already liked", "not yet liked") therefore see
// every earlier change and cannot both pass. ID, owner and date are restored
// after fn runs; mutators edit content, not identity.
func (db *DB) UpdatePost(ctx context.Context, id string, fn repository.PostMutator) (*model.Post, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning post update: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPost(tx.QueryRowContext(ctx, `SELECT doc FROM posts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg("Post not found")
		}
		return nil, fmt.Errorf("sqlite: loading post %s: %w", id, err)
	}

	owner, date := p.User, p.Date
	if err := fn(p); err != nil {
		return nil, err
	}
	p.ID, p.User, p.Date = id, owner, date

	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding post: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET doc = ? WHERE id = ?`, string(doc), id); err != nil {
		return nil, fmt.Errorf("sqlite: updating post %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing post update: %w", err)
	}

	return p, nil
}

// DeletePost removes a post by ID.
// Returns apperror.ErrNotFound if the post doesn't exist.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundMsg("Post not found")
	}

	return nil
}

// DeletePostsByUser removes every post authored by userID and reports how many went.
func (db *DB) DeletePostsByUser(ctx context.Context, userID string) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting posts of user %s: %w", userID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

func scanPost(row rowScanner) (*model.Post, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		return nil, err
	}

	var p model.Post
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decoding post document: %w", err)
	}
	if p.Likes == nil {
		p.Likes = []model.Like{}
	}
	if p.Comments == nil {
		p.Comments = []model.Comment{}
	}
	return &p, nil
}
