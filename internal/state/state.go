// Package state remembers which tags the host had set up, so they can be set up and retained again on the next
// run.  The binding layer owns no persistent state itself.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "reel"
	dbFileName = "state.db"
)

// Session is the saved (media, config) pair for one tag
type Session struct {
	Tag        string
	Media      domain.Media
	RepeatMode domain.RepeatMode
	AutoPlay   domain.AutoPlayPolicy
	SavedAt    time.Time
}

// Config rebuilds the playback config the session was saved with.  Controllers are not persisted.
func (s Session) Config() domain.Config {
	return domain.DefaultConfig().
		WithTag(s.Tag).
		WithRepeatMode(s.RepeatMode).
		WithAutoPlay(s.AutoPlay)
}

// SessionFrom captures the persistable part of a playable's media and config
func SessionFrom(media domain.Media, cfg domain.Config) Session {
	return Session{
		Tag:        cfg.EffectiveTag(media),
		Media:      media,
		RepeatMode: cfg.RepeatMode,
		AutoPlay:   cfg.AutoPlay,
	}
}

type Manager struct {
	db *sql.DB
}

// DefaultPath returns the database path under the XDG data directory, creating the directory
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Open opens or creates the database at path
func Open(path string) (*Manager, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// Save inserts or replaces the session for s.Tag
func (m *Manager) Save(s Session) error {
	if s.Tag == "" {
		return fmt.Errorf("save session: tag is empty")
	}
	savedAt := s.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err := m.db.Exec(`
		INSERT INTO sessions (tag, media_uri, media_id, repeat_mode, autoplay, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tag) DO UPDATE SET
			media_uri = excluded.media_uri,
			media_id = excluded.media_id,
			repeat_mode = excluded.repeat_mode,
			autoplay = excluded.autoplay,
			saved_at = excluded.saved_at
	`, s.Tag, s.Media.URI, s.Media.ID, int(s.RepeatMode), int(s.AutoPlay), savedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.Tag, err)
	}
	return nil
}

// Sessions returns every saved session, most recent first
func (m *Manager) Sessions() ([]Session, error) {
	rows, err := m.db.Query(`
		SELECT tag, media_uri, media_id, repeat_mode, autoplay, saved_at
		FROM sessions
		ORDER BY saved_at DESC, tag
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s        Session
			uri, id  string
			repeat   int
			autoplay int
			savedAt  int64
		)
		if err := rows.Scan(&s.Tag, &uri, &id, &repeat, &autoplay, &savedAt); err != nil {
			return nil, err
		}
		s.Media = domain.NewMediaWithID(uri, id)
		s.RepeatMode = domain.RepeatMode(repeat)
		s.AutoPlay = domain.AutoPlayPolicy(autoplay)
		s.SavedAt = time.UnixMilli(savedAt)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Delete removes the session for tag.  Deleting an unknown tag is not an error.
func (m *Manager) Delete(tag string) error {
	_, err := m.db.Exec(`DELETE FROM sessions WHERE tag = ?`, tag)
	return err
}
