// Package journal records settled bets in a local SQLite database and
// summarizes how realized results compare with the quoted odds.
package journal

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("journal: entry not found")

// Entry is one settled bet.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	WidgetID   string    `json:"widgetId,omitempty"`
	Mode       odds.Mode `json:"mode"`
	Threshold  int64     `json:"threshold"`
	WagerCents int64     `json:"wagerCents"`
	Won        bool      `json:"won"`
	Result     int64     `json:"result"`
	DeltaCents int64     `json:"deltaCents"`
	ServerSeed string    `json:"serverSeed"`
	ClientSeed string    `json:"clientSeed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store is a journal backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path and runs migrations.
// ":memory:" gives a private in-memory journal.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bets (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			widget_id TEXT NOT NULL DEFAULT '',
			roll_under INTEGER NOT NULL,
			threshold INTEGER NOT NULL,
			wager_cents INTEGER NOT NULL,
			won INTEGER NOT NULL,
			result INTEGER NOT NULL,
			delta_cents INTEGER NOT NULL,
			server_seed TEXT NOT NULL DEFAULT '',
			client_seed TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bets_created ON bets(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_bets_widget ON bets(widget_id, created_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Record stores e, assigning an ID and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if err := odds.ValidateHundredths(e.Mode, e.Threshold); err != nil {
		return Entry{}, fmt.Errorf("journal: record: %w", err)
	}
	if e.WagerCents < 0 {
		return Entry{}, errors.New("journal: record: negative wager")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bets(
			id, widget_id, roll_under, threshold, wager_cents, won,
			result, delta_cents, server_seed, client_seed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.WidgetID, e.Mode.IsUnder(), e.Threshold, e.WagerCents, e.Won,
		e.Result, e.DeltaCents, e.ServerSeed, e.ClientSeed, e.CreatedAt.UnixMilli())
	if err != nil {
		return Entry{}, fmt.Errorf("journal: record: %w", err)
	}
	return e, nil
}

const entryColumns = `id, widget_id, roll_under, threshold, wager_cents, won,
	result, delta_cents, server_seed, client_seed, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		id        string
		rollUnder bool
		createdMs int64
	)
	if err := row.Scan(&id, &e.WidgetID, &rollUnder, &e.Threshold, &e.WagerCents, &e.Won,
		&e.Result, &e.DeltaCents, &e.ServerSeed, &e.ClientSeed, &createdMs); err != nil {
		return Entry{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: bad id %q: %w", id, err)
	}
	e.ID = parsed
	e.Mode = odds.ModeFromRollUnder(rollUnder)
	e.CreatedAt = time.UnixMilli(createdMs).UTC()
	return e, nil
}

// Get returns one entry by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM bets WHERE id=?`, id.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// ListCount applies the page size rule: 20 when count is out of (0, 100].
func ListCount(count int) int {
	if count <= 0 || count > 100 {
		return 20
	}
	return count
}

// List returns entries newest first. A non-empty widgetID restricts the
// result to that widget.
func (s *Store) List(ctx context.Context, widgetID string, count, skip int) ([]Entry, error) {
	count = ListCount(count)
	if skip < 0 {
		skip = 0
	}

	var (
		where string
		args  []any
	)
	if widgetID != "" {
		where = `WHERE widget_id=?`
		args = append(args, widgetID)
	}
	args = append(args, count, skip)

	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM bets `+where+`
		ORDER BY created_at DESC, seq DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExportCSV writes every entry, oldest first, as CSV with a header row.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "created_at", "mode", "threshold", "wager", "won", "result", "delta", "server_seed", "client_seed"}); err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM bets ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if err := cw.Write([]string{
			e.ID.String(),
			e.CreatedAt.Format(time.RFC3339Nano),
			strings.ToLower(e.Mode.String()),
			odds.FromHundredths(e.Threshold).StringFixed(2),
			odds.FromHundredths(e.WagerCents).StringFixed(2),
			strconv.FormatBool(e.Won),
			odds.FromHundredths(e.Result).StringFixed(2),
			odds.FromHundredths(e.DeltaCents).StringFixed(2),
			e.ServerSeed,
			e.ClientSeed,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
