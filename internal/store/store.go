// Package store is the durable key-value store behind the activity log,
// the task list and the preference flags. The three collections are
// independent: each is read in full on first access and rewritten in
// full on every mutation, never partially.
//
// Two backends sit behind one front: JSON files under a data directory
// (the default) and Postgres when a DSN is configured, one JSONB row per
// collection so the collection-granularity rewrite discipline holds
// there too.
package store

import (
	"database/sql"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"farmwise/internal/types"
)

// Collection keys, stable across restarts and backends.
const (
	keyHistory   = "farmwise_history"
	keyReminders = "farmwise_reminders"
	keyPrefs     = "farmwise_prefs"
)

type Store struct {
	dir string
	db  *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex

	history   []types.HistoryItem
	reminders []types.Reminder
	prefs     types.Prefs

	schemaOnce sync.Once
	schemaErr  error

	rowCache *lru.Cache[string, []byte]
}

// New returns a file-backed store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: strings.TrimSpace(dir)}
}

// NewPostgres returns a Postgres-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, []byte](8)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, rowCache: cache}, nil
}

// NewFromDSN picks the Postgres backend when dsn is set and reachable,
// falling back to files under dir.
func NewFromDSN(dir, dsn string) *Store {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return New(dir)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(dir)
	}
	return s
}

// Close releases the database connection, if any.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// History -------------------------------------------------------------------------

// History returns the activity log, newest first.
func (s *Store) History() []types.HistoryItem {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.historyDB()
	}
	return s.historyFile()
}

// PrependHistory inserts item at the head of the activity log and
// persists the full collection.
func (s *Store) PrependHistory(item types.HistoryItem) error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.prependHistoryDB(item)
	}
	return s.prependHistoryFile(item)
}

// ClearHistory empties the activity log. Destructive and unconditional;
// the task list is untouched.
func (s *Store) ClearHistory() error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.clearHistoryDB()
	}
	return s.clearHistoryFile()
}

// Reminders -----------------------------------------------------------------------

func (s *Store) Reminders() []types.Reminder {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.remindersDB()
	}
	return s.remindersFile()
}

// AddReminder inserts r at the head of the task list.
func (s *Store) AddReminder(r types.Reminder) error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.addReminderDB(r)
	}
	return s.addReminderFile(r)
}

// UpdateReminder applies update to the reminder with the given id.
// The second return is false when no such reminder exists.
func (s *Store) UpdateReminder(id string, update func(*types.Reminder)) (types.Reminder, bool, error) {
	if s == nil {
		return types.Reminder{}, false, nil
	}
	if s.db != nil {
		return s.updateReminderDB(id, update)
	}
	return s.updateReminderFile(id, update)
}

// DeleteReminder removes the reminder with the given id.
func (s *Store) DeleteReminder(id string) (bool, error) {
	if s == nil {
		return false, nil
	}
	if s.db != nil {
		return s.deleteReminderDB(id)
	}
	return s.deleteReminderFile(id)
}

// Prefs ---------------------------------------------------------------------------

func (s *Store) Prefs() types.Prefs {
	if s == nil {
		return types.Prefs{}
	}
	if s.db != nil {
		return s.prefsDB()
	}
	return s.prefsFile()
}

func (s *Store) SetPrefs(p types.Prefs) error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.setPrefsDB(p)
	}
	return s.setPrefsFile(p)
}
