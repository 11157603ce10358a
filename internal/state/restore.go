package state

import (
	"errors"
	"fmt"

	"github.com/PizzaHomicide/reel/internal/binding"
	"github.com/PizzaHomicide/reel/internal/log"
)

// Restore sets every saved session up on master again and retains its tag, so the playable survives until the
// host binds it.  It returns the restored tags; the host forgets them once it has bound what it still shows.
func (m *Manager) Restore(master *binding.Master) ([]string, error) {
	sessions, err := m.Sessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var restored []string
	for _, s := range sessions {
		handle := master.SetUp(s.Media, s.Config())
		if handle.Playable() == nil {
			handle.Discard()
			log.Warn("Could not restore session", "tag", s.Tag)
			continue
		}
		tag := handle.Playable().Tag()
		master.Retain(tag)
		handle.Discard()
		restored = append(restored, tag)
	}
	log.Info("Sessions restored", "count", len(restored))
	return restored, nil
}

// Snapshot saves every live tag on master and deletes saved sessions for tags that are gone
func (m *Manager) Snapshot(master *binding.Master) error {
	live := make(map[string]bool)
	var errs []error
	for _, tag := range master.Tags() {
		p, ok := master.FindPlayable(tag).Get()
		if !ok {
			continue
		}
		if err := m.Save(SessionFrom(p.Media(), p.Config())); err != nil {
			errs = append(errs, err)
			continue
		}
		live[tag] = true
	}

	saved, err := m.Sessions()
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("list sessions: %w", err))...)
	}
	for _, s := range saved {
		if live[s.Tag] {
			continue
		}
		if err := m.Delete(s.Tag); err != nil {
			errs = append(errs, fmt.Errorf("delete session %s: %w", s.Tag, err))
		}
	}
	log.Info("Sessions saved", "count", len(live))
	return errors.Join(errs...)
}
