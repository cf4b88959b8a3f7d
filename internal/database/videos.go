package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"movie-meme-api/internal/models"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

var (
	// ErrNotFound is returned when no record matches, including for ids that
	// are not syntactically valid.
	ErrNotFound = errors.New("video not found")
	// ErrInvalidRecord is returned when a record breaks a catalog invariant.
	ErrInvalidRecord = errors.New("invalid video record")
)

const videoColumns = `id, title, file_path, thumbnail_path, tags_json, movie_name, user_id, created_at`

const newestFirst = ` ORDER BY created_at DESC, seq DESC`

// Query selects records for Search. At most one criterion is applied, in the
// order Text, Tag, Movie; an empty Query matches every record.
type Query struct {
	Text  string
	Tag   string
	Movie string
}

// Mode names the criterion Search will use.
func (q Query) Mode() string {
	switch {
	case strings.TrimSpace(q.Text) != "":
		return "text"
	case q.Tag != "":
		return "tag"
	case q.Movie != "":
		return "movie"
	default:
		return "all"
	}
}

// ValidID reports whether id has the syntax of a catalog identifier.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Create assigns the id and creation time and persists the record together
// with its tag rows and text index entry.
func (c *Catalog) Create(ctx context.Context, v *models.Video) error {
	if strings.TrimSpace(v.Title) == "" || v.FilePath == "" || len(v.Tags) == 0 {
		return ErrInvalidRecord
	}
	tagsJSON, err := json.Marshal(v.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	id := uuid.NewString()
	createdAt := c.now().UTC()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO videos (id, title, file_path, thumbnail_path, tags_json, movie_name, movie_name_folded, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, v.Title, v.FilePath, v.ThumbnailPath, string(tagsJSON),
		v.MovieName, fold(v.MovieName), v.UserID, createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO video_tags (video_seq, position, tag) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to create prepared statement: %w", err)
	}
	defer stmt.Close()
	for i, tag := range v.Tags {
		if _, err := stmt.ExecContext(ctx, seq, i, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO videos_fts (docid, title, movie_name, tags) VALUES (?, ?, ?, ?)`,
		seq, v.Title, v.MovieName, strings.Join(v.Tags, " "),
	); err != nil {
		return fmt.Errorf("index video: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error while committing transaction: %w", err)
	}
	v.ID = id
	v.CreatedAt = createdAt
	return nil
}

// List returns every record, newest first.
func (c *Catalog) List(ctx context.Context) ([]models.Video, error) {
	return c.query(ctx, `SELECT `+videoColumns+` FROM videos`+newestFirst)
}

// Search applies the first non-empty criterion of q, newest first.
func (c *Catalog) Search(ctx context.Context, q Query) ([]models.Video, error) {
	switch q.Mode() {
	case "text":
		match := matchExpression(q.Text)
		if match == "" {
			return []models.Video{}, nil
		}
		return c.query(ctx, `SELECT `+videoColumns+` FROM videos
			WHERE seq IN (SELECT docid FROM videos_fts WHERE videos_fts MATCH ?)`+newestFirst, match)
	case "tag":
		return c.query(ctx, `SELECT `+videoColumns+` FROM videos
			WHERE seq IN (SELECT video_seq FROM video_tags WHERE tag = ?)`+newestFirst, q.Tag)
	case "movie":
		return c.query(ctx, `SELECT `+videoColumns+` FROM videos
			WHERE instr(movie_name_folded, ?) > 0`+newestFirst, fold(q.Movie))
	default:
		return c.List(ctx)
	}
}

// Get returns the record with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (*models.Video, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	row := c.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes the record, its tags and its text index entry.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return ErrNotFound
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM videos WHERE id = ?`, id).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup video: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM videos_fts WHERE docid = ?`, seq); err != nil {
		return fmt.Errorf("unindex video: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM video_tags WHERE video_seq = ?`, seq); err != nil {
		return fmt.Errorf("delete tags: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error while committing transaction: %w", err)
	}
	return nil
}

// ReferencedLocators returns the file and thumbnail locators of every record.
// Empty thumbnail locators are skipped.
func (c *Catalog) ReferencedLocators(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT file_path, thumbnail_path FROM videos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var file, thumb string
		if err := rows.Scan(&file, &thumb); err != nil {
			return nil, err
		}
		out = append(out, file)
		if thumb != "" {
			out = append(out, thumb)
		}
	}
	return out, rows.Err()
}

// Count returns the number of records.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n)
	return n, err
}

func (c *Catalog) query(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return videos, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(s scanner) (*models.Video, error) {
	var (
		v         models.Video
		tagsJSON  string
		createdAt int64
	)
	if err := s.Scan(&v.ID, &v.Title, &v.FilePath, &v.ThumbnailPath, &tagsJSON, &v.MovieName, &v.UserID, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &v.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", v.ID, err)
	}
	v.CreatedAt = time.Unix(0, createdAt).UTC()
	return &v, nil
}

// matchExpression turns free text into an FTS query that matches any of its
// words. Words are quoted so user input cannot inject FTS operators.
func matchExpression(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " OR ")
}

func fold(s string) string {
	return cases.Fold().String(s)
}
