// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"tripledger/internal/models"
	"tripledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite. A process-wide
// mutex serializes writes so an event is never mutated while a
// settlement computation is reading it.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLiteStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateEvent persists an event with everything it owns.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO events (id, name, currency, created_at) VALUES (?, ?, ?, ?)",
		event.ID(), event.Name(), event.Currency(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	for i, p := range event.People() {
		if err := insertPerson(ctx, tx, event.ID(), p, i); err != nil {
			return err
		}
	}
	for i, a := range event.Activities() {
		if err := insertActivity(ctx, tx, event.ID(), a, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddPerson appends a person to an existing event.
func (s *SQLiteStore) AddPerson(ctx context.Context, eventID string, p models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := eventExists(ctx, tx, eventID); err != nil {
		return err
	}

	position, err := nextPosition(ctx, tx, "people", eventID)
	if err != nil {
		return err
	}
	if err := insertPerson(ctx, tx, eventID, p, position); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddActivity appends an activity to an existing event.
func (s *SQLiteStore) AddActivity(ctx context.Context, eventID string, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := eventExists(ctx, tx, eventID); err != nil {
		return err
	}

	position, err := nextPosition(ctx, tx, "activities", eventID)
	if err != nil {
		return err
	}
	if err := insertActivity(ctx, tx, eventID, a, position); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteEvent removes an event; child rows cascade.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if n == 0 {
		return storage.ErrEventNotFound
	}
	return nil
}

// ListEvents returns listing entries, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context) ([]storage.EventInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.currency, e.created_at,
		       (SELECT COUNT(*) FROM people p WHERE p.event_id = e.id)
		FROM events e
		ORDER BY e.created_at DESC, e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var infos []storage.EventInfo
	for rows.Next() {
		var info storage.EventInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Currency, &info.CreatedAt, &info.People); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return infos, nil
}

// GetEvent reconstructs a full event, re-running model validation so a
// tampered database cannot produce an invalid domain object.
func (s *SQLiteStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var name, currency string
	err := s.db.QueryRowContext(ctx,
		"SELECT name, currency FROM events WHERE id = ?", eventID,
	).Scan(&name, &currency)
	if err == sql.ErrNoRows {
		return nil, storage.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	event := models.RestoreEvent(eventID, name, currency)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM people WHERE event_id = ? ORDER BY position", eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get people: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, pname string
		if err := rows.Scan(&id, &pname); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		p, err := models.NewPersonWithID(id, pname)
		if err != nil {
			return nil, fmt.Errorf("stored person %s: %w", id, err)
		}
		if err := event.AddMember(p); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}

	activityRows, err := s.db.QueryContext(ctx, `
		SELECT id, description, amount, split_strategy, split_payer
		FROM activities WHERE event_id = ? ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	defer activityRows.Close()

	type activityRow struct {
		id, description, amount, strategy string
		splitPayer                        bool
	}
	var raw []activityRow
	for activityRows.Next() {
		var r activityRow
		if err := activityRows.Scan(&r.id, &r.description, &r.amount, &r.strategy, &r.splitPayer); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		raw = append(raw, r)
	}
	if err := activityRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}

	for _, r := range raw {
		a, err := s.loadActivity(ctx, r.id, r.description, r.amount, r.strategy, r.splitPayer)
		if err != nil {
			return nil, err
		}
		if err := event.AddActivity(a); err != nil {
			return nil, err
		}
	}

	return event, nil
}

func (s *SQLiteStore) loadActivity(ctx context.Context, id, description, amountStr, strategyStr string, splitPayer bool) (*models.Activity, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("stored activity %s has bad amount %q: %w", id, amountStr, err)
	}
	strategy, err := models.ParseStrategy(strategyStr)
	if err != nil {
		return nil, fmt.Errorf("stored activity %s: %w", id, err)
	}

	payments, err := s.loadPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	var payer models.Payer
	if splitPayer {
		payer = models.SplitPayer(payments)
	} else {
		payer = models.SinglePayer(payments[0].PersonID)
	}

	participants, err := s.loadParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	weights, err := s.loadAmountMap(ctx, "activity_weights", "weight", id)
	if err != nil {
		return nil, err
	}
	shares, err := s.loadAmountMap(ctx, "activity_shares", "share", id)
	if err != nil {
		return nil, err
	}

	return models.NewActivityWithID(id, description, amount, payer, participants, strategy, weights, shares)
}

func (s *SQLiteStore) loadPayments(ctx context.Context, activityID string) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person_id, amount FROM activity_payers WHERE activity_id = ? ORDER BY position", activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payers: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var personID, amountStr string
		if err := rows.Scan(&personID, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan payer: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("stored payer amount %q: %w", amountStr, err)
		}
		payments = append(payments, models.Payment{PersonID: personID, Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payers: %w", err)
	}
	if len(payments) == 0 {
		return nil, fmt.Errorf("stored activity %s has no payers", activityID)
	}
	return payments, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, activityID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person_id FROM activity_participants WHERE activity_id = ? ORDER BY position", activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

func (s *SQLiteStore) loadAmountMap(ctx context.Context, table, column, activityID string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person_id, "+column+" FROM "+table+" WHERE activity_id = ?", activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", table, err)
	}
	defer rows.Close()

	var out map[string]decimal.Decimal
	for rows.Next() {
		var personID, valueStr string
		if err := rows.Scan(&personID, &valueStr); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		value, err := decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("stored %s value %q: %w", column, valueStr, err)
		}
		if out == nil {
			out = make(map[string]decimal.Decimal)
		}
		out[personID] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}
	return out, nil
}

func eventExists(ctx context.Context, tx *sql.Tx, eventID string) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = ?", eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return storage.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	return nil
}

func nextPosition(ctx context.Context, tx *sql.Tx, table, eventID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE event_id = ?", eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func insertPerson(ctx context.Context, tx *sql.Tx, eventID string, p models.Person, position int) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO people (id, event_id, name, position) VALUES (?, ?, ?, ?)",
		p.ID, eventID, p.Name, position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func insertActivity(ctx context.Context, tx *sql.Tx, eventID string, a *models.Activity, position int) error {
	payments := a.Payments()
	splitPayer := len(payments) > 1

	_, err := tx.ExecContext(ctx,
		"INSERT INTO activities (id, event_id, description, amount, split_strategy, split_payer, position) VALUES (?, ?, ?, ?, ?, ?, ?)",
		a.ID(), eventID, a.Description(), a.Amount().String(), string(a.Strategy()), splitPayer, position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	for i, p := range payments {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO activity_payers (activity_id, person_id, amount, position) VALUES (?, ?, ?, ?)",
			a.ID(), p.PersonID, p.Amount.String(), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payer: %w", err)
		}
	}

	for i, id := range a.Participants() {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO activity_participants (activity_id, person_id, position) VALUES (?, ?, ?)",
			a.ID(), id, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	for id, w := range a.Weights() {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO activity_weights (activity_id, person_id, weight) VALUES (?, ?, ?)",
			a.ID(), id, w.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert weight: %w", err)
		}
	}

	for id, sh := range a.FixedShares() {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO activity_shares (activity_id, person_id, share) VALUES (?, ?, ?)",
			a.ID(), id, sh.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}

	return nil
}
