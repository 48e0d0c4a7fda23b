package store

import (
	"database/sql"
	"encoding/json"

	"farmwise/internal/types"
)

// The Postgres backend stores each collection as one JSONB row keyed by
// its collection name; every mutation rewrites the whole row, matching
// the file backend's full-rewrite discipline. Reads go through a small
// LRU keyed by collection name, invalidated on write.

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS collections (
  name TEXT PRIMARY KEY,
  data JSONB NOT NULL DEFAULT '[]'::jsonb,
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

// readCollectionDB returns the raw payload for a collection, consulting
// the cache first. A missing or unreadable row is an empty payload.
func (s *Store) readCollectionDB(name string) []byte {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	if s.rowCache != nil {
		if cached, ok := s.rowCache.Get(name); ok {
			return cached
		}
	}
	var raw []byte
	err := s.db.QueryRow(`SELECT data FROM collections WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil
		}
		raw = nil
	}
	if s.rowCache != nil {
		s.rowCache.Add(name, raw)
	}
	return raw
}

// writeCollectionDB rewrites a collection row in full.
func (s *Store) writeCollectionDB(name string, v any) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
INSERT INTO collections (name, data, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
`, name, b)
	if err != nil {
		return err
	}
	if s.rowCache != nil {
		s.rowCache.Add(name, b)
	}
	return nil
}

// decodeRows tolerates corrupt payloads by returning the zero value.
func decodeRows[T any](raw []byte) []T {
	if len(raw) == 0 {
		return nil
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	return rows
}

// History -------------------------------------------------------------------------

func (s *Store) historyDB() []types.HistoryItem {
	return decodeRows[types.HistoryItem](s.readCollectionDB(keyHistory))
}

func (s *Store) prependHistoryDB(item types.HistoryItem) error {
	rows := s.historyDB()
	return s.writeCollectionDB(keyHistory, append([]types.HistoryItem{item}, rows...))
}

func (s *Store) clearHistoryDB() error {
	return s.writeCollectionDB(keyHistory, []types.HistoryItem{})
}

// Reminders -----------------------------------------------------------------------

func (s *Store) remindersDB() []types.Reminder {
	return decodeRows[types.Reminder](s.readCollectionDB(keyReminders))
}

func (s *Store) addReminderDB(r types.Reminder) error {
	rows := s.remindersDB()
	return s.writeCollectionDB(keyReminders, append([]types.Reminder{r}, rows...))
}

func (s *Store) updateReminderDB(id string, update func(*types.Reminder)) (types.Reminder, bool, error) {
	rows := s.remindersDB()
	for i := range rows {
		if rows[i].ID != id {
			continue
		}
		update(&rows[i])
		rows[i].ID = id
		if err := s.writeCollectionDB(keyReminders, rows); err != nil {
			return types.Reminder{}, false, err
		}
		return rows[i], true, nil
	}
	return types.Reminder{}, false, nil
}

func (s *Store) deleteReminderDB(id string) (bool, error) {
	rows := s.remindersDB()
	next := make([]types.Reminder, 0, len(rows))
	found := false
	for _, r := range rows {
		if r.ID == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		return false, nil
	}
	if err := s.writeCollectionDB(keyReminders, next); err != nil {
		return false, err
	}
	return true, nil
}

// Prefs ---------------------------------------------------------------------------

func (s *Store) prefsDB() types.Prefs {
	raw := s.readCollectionDB(keyPrefs)
	if len(raw) == 0 {
		return types.Prefs{}
	}
	var p types.Prefs
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Prefs{}
	}
	return p
}

func (s *Store) setPrefsDB(p types.Prefs) error {
	return s.writeCollectionDB(keyPrefs, p)
}
