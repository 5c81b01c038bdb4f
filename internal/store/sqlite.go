package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/notification-triage/internal/filter"
	"github.com/nhle/notification-triage/internal/model"
)

// busyTimeoutMillis bounds how long a connection waits on a write lock held
// by another connection of the pool.
const busyTimeoutMillis = 5000

// SQLiteStore implements the Store interface using a local SQLite database.
// Every call borrows a connection from the sqlx pool for the duration of
// one statement or transaction, so it is safe for concurrent use.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode so readers do not block the sync writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// dsn appends the per-connection pragmas to a plain file path. Paths that
// already carry query parameters are used as given.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", dbPath, busyTimeoutMillis)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertNotification inserts a notification or refreshes an existing one.
// score_boost is left untouched on conflict and done is reset, since a
// thread showing up again means there is new remote activity on it.
func (s *SQLiteStore) UpsertNotification(ctx context.Context, n model.Notification) error {
	const query = `
		INSERT INTO notifications (
			id, title, repo, url, reason,
			kind, state, author,
			unread, updated_at, done, score, score_boost
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, 0, ?, 0
		)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			repo       = excluded.repo,
			url        = excluded.url,
			reason     = excluded.reason,
			kind       = excluded.kind,
			state      = excluded.state,
			author     = excluded.author,
			unread     = excluded.unread,
			updated_at = excluded.updated_at,
			done       = 0,
			score      = excluded.score`

	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.Title, n.Repo, n.URL, n.Reason,
		string(n.Kind), string(n.State), n.Author,
		boolToInt(n.Unread), n.UpdatedAt.UTC(), n.Score,
	)
	if err != nil {
		return fmt.Errorf("upserting notification %s: %w", n.ID, err)
	}
	return nil
}

// GetNotifications retrieves the not-done notifications matching q.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	q filter.Query,
) ([]model.Notification, error) {
	conditions := []string{"done = 0"}
	var args []interface{}

	if q.Author != "" {
		conditions = append(conditions, "lower(author) LIKE ? ESCAPE '\\'")
		args = append(args, likePattern(q.Author))
	}
	if q.Repo != "" {
		conditions = append(conditions, "lower(repo) LIKE ? ESCAPE '\\'")
		args = append(args, likePattern(q.Repo))
	}
	if q.Title != "" {
		conditions = append(conditions, "lower(title) LIKE ? ESCAPE '\\'")
		args = append(args, likePattern(q.Title))
	}
	if q.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, string(q.State))
	}
	if q.Text != "" {
		conditions = append(conditions, likeAny("title", "author", "repo"))
		p := likePattern(q.Text)
		args = append(args, p, p, p)
	}

	query := "SELECT * FROM notifications WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY (score + score_boost) DESC, updated_at DESC, id ASC"

	var notifications []model.Notification
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return notifications, nil
}

// GetNotification retrieves a single notification by id, done or not.
func (s *SQLiteStore) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := s.db.GetContext(ctx, &n, "SELECT * FROM notifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	return &n, nil
}

// UpdateBoost adds delta to the manual boost of a notification.
func (s *SQLiteStore) UpdateBoost(ctx context.Context, id string, delta int) error {
	return s.updateOne(ctx, id,
		"UPDATE notifications SET score_boost = score_boost + ? WHERE id = ?",
		delta, id)
}

// SetDone flips the local done flag of a notification.
func (s *SQLiteStore) SetDone(ctx context.Context, id string, done bool) error {
	return s.updateOne(ctx, id,
		"UPDATE notifications SET done = ? WHERE id = ?",
		boolToInt(done), id)
}

// SetDoneBulk marks every listed notification as done in one transaction.
func (s *SQLiteStore) SetDoneBulk(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("UPDATE notifications SET done = 1 WHERE id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("building bulk done query: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("marking %d notifications done: %w", len(ids), err)
	}

	return tx.Commit()
}

// SetUnread updates the unread flag of a notification.
func (s *SQLiteStore) SetUnread(ctx context.Context, id string, unread bool) error {
	return s.updateOne(ctx, id,
		"UPDATE notifications SET unread = ? WHERE id = ?",
		boolToInt(unread), id)
}

// LatestUpdate returns the watermark used for incremental fetches.
func (s *SQLiteStore) LatestUpdate(ctx context.Context) (*time.Time, error) {
	var latest time.Time
	err := s.db.GetContext(ctx, &latest,
		"SELECT updated_at FROM notifications ORDER BY updated_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest update: %w", err)
	}

	latest = latest.UTC()
	return &latest, nil
}

// updateOne runs a single-row update and reports ErrNotFound when no row
// has the given id.
func (s *SQLiteStore) updateOne(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating notification %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of notification %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("updating notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// likeEscaper escapes the LIKE wildcards so a filter matches its text
// literally. Conditions using it declare ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern lower-cases s and wraps it for a substring LIKE match.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// likeAny matches one pattern against any of columns.
func likeAny(columns ...string) string {
	conds := make([]string, len(columns))
	for i, c := range columns {
		conds[i] = "lower(" + c + ") LIKE ? ESCAPE '\\'"
	}
	return "(" + strings.Join(conds, " OR ") + ")"
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
