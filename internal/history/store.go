// Package history persists finished comparisons and their comment threads in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/reqcheck/internal/filelock"
	"github.com/harrison/reqcheck/internal/models"
)

// ErrNotFound is returned for an unknown comparison id.
var ErrNotFound = errors.New("comparison not found")

// DefaultUserName is recorded when no user is given
const DefaultUserName = "Аноним"

// timeLayout is fixed-width so that lexical order is chronological
const timeLayout = "2006-01-02T15:04:05.000000Z"

// NewComparison is what a caller hands over to be saved.
type NewComparison struct {
	TTZFilename string
	KDFilename  string
	TTZMethod   string
	KDMethod    string
	UserName    string
	Rows        []models.ComparisonRow
}

// Comparison is a stored comparison. Rows is only populated by GetComparison.
type Comparison struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	TTZFilename string                 `json:"ttz_filename"`
	KDFilename  string                 `json:"kd_filename"`
	TTZMethod   string                 `json:"ttz_method,omitempty"`
	KDMethod    string                 `json:"kd_method,omitempty"`
	UserName    string                 `json:"user_name"`
	Summary     models.Summary         `json:"summary"`
	Rows        []models.ComparisonRow `json:"rows,omitempty"`
}

// Comment is one entry of a comparison's append-only discussion thread.
type Comment struct {
	ID           int64     `json:"id"`
	ComparisonID string    `json:"comparison_id"`
	CreatedAt    time.Time `json:"created_at"`
	UserName     string    `json:"user_name"`
	Text         string    `json:"comment_text"`
}

// Store manages the history database
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. ":memory:" opens a private in-memory database.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == ":memory:" {
		store, err := openStore(dbPath)
		if err != nil {
			return nil, err
		}
		store.db.SetMaxOpenConns(1)
		if err := store.ApplyMigrations(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		return store, nil
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	store, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}

	// Other reqcheck processes may be opening the same file
	err = filelock.With(ctx, dbPath, func() error {
		return store.ApplyMigrations(ctx)
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func openStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath != ":memory:" {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("set %s: %w", pragma, err)
			}
		}
	}

	return &Store{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location
func (s *Store) Path() string {
	return s.dbPath
}

// SaveComparison stores the rows with their summary and returns the new comparison id.
func (s *Store) SaveComparison(ctx context.Context, c NewComparison) (string, error) {
	rows := c.Rows
	if rows == nil {
		rows = []models.ComparisonRow{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal rows: %w", err)
	}

	user := strings.TrimSpace(c.UserName)
	if user == "" {
		user = DefaultUserName
	}

	sum := models.Summarize(rows)
	id := uuid.NewString()

	query := `INSERT INTO comparisons
		(id, created_at, ttz_filename, kd_filename, ttz_method, kd_method, user_name,
		 total, found, ok, partial, not_found, results_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		id, formatTime(s.now()), c.TTZFilename, c.KDFilename, c.TTZMethod, c.KDMethod, user,
		sum.Total, sum.Found, sum.OK, sum.Partial, sum.NotFound, string(data))
	if err != nil {
		return "", fmt.Errorf("insert comparison: %w", err)
	}
	return id, nil
}

const comparisonColumns = `id, created_at, ttz_filename, kd_filename, ttz_method, kd_method, user_name,
	total, found, ok, partial, not_found`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanComparison(row scanner, extra ...interface{}) (*Comparison, error) {
	c := &Comparison{}
	var created string
	var ttzMethod, kdMethod sql.NullString
	dest := []interface{}{
		&c.ID, &created, &c.TTZFilename, &c.KDFilename, &ttzMethod, &kdMethod, &c.UserName,
		&c.Summary.Total, &c.Summary.Found, &c.Summary.OK, &c.Summary.Partial, &c.Summary.NotFound,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.TTZMethod = ttzMethod.String
	c.KDMethod = kdMethod.String

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	c.CreatedAt = t
	return c, nil
}

// ListComparisons returns all comparisons, newest first, without their rows.
func (s *Store) ListComparisons(ctx context.Context) ([]Comparison, error) {
	query := `SELECT ` + comparisonColumns + ` FROM comparisons ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	list := []Comparison{}
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		list = append(list, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}
	return list, nil
}

// GetComparison returns a comparison with its rows.
func (s *Store) GetComparison(ctx context.Context, id string) (*Comparison, error) {
	query := `SELECT ` + comparisonColumns + `, results_json FROM comparisons WHERE id = ?`

	var data string
	c, err := scanComparison(s.db.QueryRowContext(ctx, query, id), &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get comparison %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get comparison %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(data), &c.Rows); err != nil {
		return nil, fmt.Errorf("unmarshal rows of %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) exists(ctx context.Context, id string) error {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comparisons WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("check comparison %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddComment appends a comment to a comparison's thread.
func (s *Store) AddComment(ctx context.Context, comparisonID, userName, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("comment text is empty")
	}
	if err := s.exists(ctx, comparisonID); err != nil {
		return nil, err
	}

	user := strings.TrimSpace(userName)
	if user == "" {
		user = DefaultUserName
	}
	created := s.now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (comparison_id, created_at, user_name, comment_text) VALUES (?, ?, ?, ?)`,
		comparisonID, formatTime(created), user, text)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get comment id: %w", err)
	}

	return &Comment{
		ID:           id,
		ComparisonID: comparisonID,
		CreatedAt:    created.Truncate(time.Microsecond),
		UserName:     user,
		Text:         text,
	}, nil
}

// ListComments returns a comparison's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, comparisonID string) ([]Comment, error) {
	if err := s.exists(ctx, comparisonID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, comparison_id, created_at, user_name, comment_text
		 FROM comments WHERE comparison_id = ? ORDER BY created_at ASC, id ASC`, comparisonID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.ComparisonID, &created, &c.UserName, &c.Text); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if c.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse comment time %q: %w", created, err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// PurgeOlderThan deletes comparisons (and their comments) older than days and
// returns how many comparisons were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	cutoff := s.now().AddDate(0, 0, -days)

	res, err := s.db.ExecContext(ctx, `DELETE FROM comparisons WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete comparisons: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted comparisons: %w", err)
	}
	return n, nil
}

var exportHeader = []string{"id", "created_at", "ttz_filename", "kd_filename", "user_name", "total", "found", "ok", "partial", "not_found"}

// ExportCSV writes the comparison list (newest first) as CSV.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	list, err := s.ListComparisons(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range list {
		record := []string{
			c.ID,
			c.CreatedAt.Format(time.RFC3339),
			c.TTZFilename,
			c.KDFilename,
			c.UserName,
			strconv.Itoa(c.Summary.Total),
			strconv.Itoa(c.Summary.Found),
			strconv.Itoa(c.Summary.OK),
			strconv.Itoa(c.Summary.Partial),
			strconv.Itoa(c.Summary.NotFound),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
