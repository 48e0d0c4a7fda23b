package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"farmwise/internal/types"
)

// The file backend keeps all three collections in memory after a single
// load at first access. A mutation rewrites only the mutated
// collection's file, atomically via tmp+rename. A missing or corrupt
// file is an empty collection, never an error surfaced to the caller.

func (s *Store) collectionPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		readInto(s.collectionPath(keyHistory), &s.history)
		readInto(s.collectionPath(keyReminders), &s.reminders)
		readInto(s.collectionPath(keyPrefs), &s.prefs)
	})
}

// readInto leaves v untouched when the file is absent or does not parse.
func readInto(path string, v any) {
	b, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(b, v)
}

func writeCollection(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// History -------------------------------------------------------------------------

func (s *Store) historyFile() []types.HistoryItem {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.HistoryItem, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Store) prependHistoryFile(item types.HistoryItem) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]types.HistoryItem{item}, s.history...)
	if err := writeCollection(s.collectionPath(keyHistory), next); err != nil {
		return err
	}
	s.history = next
	return nil
}

func (s *Store) clearHistoryFile() error {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeCollection(s.collectionPath(keyHistory), []types.HistoryItem{}); err != nil {
		return err
	}
	s.history = nil
	return nil
}

// Reminders -----------------------------------------------------------------------

func (s *Store) remindersFile() []types.Reminder {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

func (s *Store) addReminderFile(r types.Reminder) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]types.Reminder{r}, s.reminders...)
	if err := writeCollection(s.collectionPath(keyReminders), next); err != nil {
		return err
	}
	s.reminders = next
	return nil
}

func (s *Store) updateReminderFile(id string, update func(*types.Reminder)) (types.Reminder, bool, error) {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]types.Reminder, len(s.reminders))
	copy(next, s.reminders)
	for i := range next {
		if next[i].ID != id {
			continue
		}
		update(&next[i])
		next[i].ID = id
		if err := writeCollection(s.collectionPath(keyReminders), next); err != nil {
			return types.Reminder{}, false, err
		}
		s.reminders = next
		return next[i], true, nil
	}
	return types.Reminder{}, false, nil
}

func (s *Store) deleteReminderFile(id string) (bool, error) {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]types.Reminder, 0, len(s.reminders))
	found := false
	for _, r := range s.reminders {
		if r.ID == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		return false, nil
	}
	if err := writeCollection(s.collectionPath(keyReminders), next); err != nil {
		return false, err
	}
	s.reminders = next
	return true, nil
}

// Prefs ---------------------------------------------------------------------------

func (s *Store) prefsFile() types.Prefs {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

func (s *Store) setPrefsFile(p types.Prefs) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeCollection(s.collectionPath(keyPrefs), p); err != nil {
		return err
	}
	s.prefs = p
	return nil
}
