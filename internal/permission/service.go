package permission

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Service holds the active ruleset and session-scoped grants. Lookups take an
// atomic snapshot, so hot-reloading rules never blocks evaluation.
type Service struct {
	rules  atomic.Pointer[Ruleset]
	logger *zap.Logger

	mu     sync.Mutex
	grants map[grantKey]struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
}

type grantKey struct {
	session    string
	permission string
	pattern    string
}

// NewService creates a Service seeded with rs, or DefaultRuleset when rs is
// nil.
func NewService(rs *Ruleset, logger *zap.Logger) *Service {
	if rs == nil {
		rs = DefaultRuleset()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		logger: logger,
		grants: make(map[grantKey]struct{}),
	}
	s.rules.Store(rs)
	return s
}

// Rules returns the current ruleset snapshot.
func (s *Service) Rules() *Ruleset {
	return s.rules.Load()
}

// Replace swaps in a new ruleset. In-flight evaluations keep the snapshot
// they already loaded.
func (s *Service) Replace(rs *Ruleset) {
	if rs == nil {
		return
	}
	s.rules.Store(rs)
}

// Evaluate resolves a decision for the session, consulting always-allow
// grants before the ruleset. A grant recorded for an Ask decision downgrades
// it to Allow for the rest of the session; Deny is never overridden.
func (s *Service) Evaluate(sessionID, name, subject string) Decision {
	d := s.Rules().Evaluate(name, subject)
	if d != Ask {
		return d
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.grants {
		if key.session == sessionID && key.permission == name && Match(key.pattern, subject) {
			return Allow
		}
	}
	return Ask
}

// Grant records an always-allow answer for the session. The pattern is
// matched against future subjects with the same glob semantics as rules.
func (s *Service) Grant(sessionID, name, pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey{sessionID, name, pattern}] = struct{}{}
}

// ClearSession drops all grants recorded for a session.
func (s *Service) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.grants {
		if key.session == sessionID {
			delete(s.grants, key)
		}
	}
}

// Watch reloads the ruleset whenever path changes on disk. The load callback
// parses the file and returns the new ruleset; parse failures keep the
// current rules. Call Close to stop watching.
func (s *Service) Watch(path string, load func(path string) (*Ruleset, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	s.watcher = w
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				rs, err := load(ev.Name)
				if err != nil {
					s.logger.Warn("permission rules reload failed, keeping current rules",
						zap.String("path", ev.Name), zap.Error(err))
					continue
				}
				s.Replace(rs)
				s.logger.Info("permission rules reloaded", zap.String("path", ev.Name))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("permission rules watcher error", zap.Error(err))
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the ruleset watcher if one is running.
func (s *Service) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
