package twinconfig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edge-sentinel/agent/pkg/logger"
)

// Store owns the applied Snapshot and the last UpdateOutcome.
type Store struct {
	namespace string
	defaults  Snapshot
	ext       Extension
	now       func() time.Time

	// updateMu serializes writers; mu guards current, closed and ext state.
	updateMu sync.Mutex
	mu       sync.RWMutex
	current  Snapshot
	closed   bool

	outcome atomic.Pointer[UpdateOutcome]

	callbackMu       sync.RWMutex
	changeCallbacks  []func(Snapshot)
	outcomeCallbacks []func(context.Context, UpdateOutcome)
}

// New creates a store seeded with the defaults and a not-yet-evaluated outcome.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		namespace: DefaultNamespace,
		defaults:  DefaultSnapshot(),
		ext:       NoopExtension{},
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to configure twin store: %w", err)
		}
	}
	s.current = s.defaults
	s.outcome.Store(&UpdateOutcome{Result: ResultNone})
	return s, nil
}

// Namespace returns the namespace object name.
func (s *Store) Namespace() string {
	return s.namespace
}

// Close releases the store. Later lock-guarded calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.ext.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close event priority extension: %w", err)
		}
	}
	return nil
}

// Update decodes document and applies it when every field is accepted.
// The returned error classifies with ResultOf; nil means the new
// configuration is in force. An outcome is recorded on every path.
func (s *Store) Update(ctx context.Context, document []byte, mode Mode) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	log := logger.FromContext(ctx).With("namespace", s.namespace, "mode", mode.String())
	outcome, changed, err := s.update(document, mode)
	switch ResultOf(err) {
	case ResultOK:
		log.Debug("Twin configuration applied", "changed", changed)
	case ResultParseException:
		log.Warn("Twin configuration rejected", "rejected", outcome.Bundle.Rejected(), "error", err)
	default:
		log.Error("Twin configuration update failed", "result", outcome.Result, "error", err)
	}
	if changed != nil {
		s.notifyChange(*changed)
	}
	s.notifyOutcome(ctx, outcome)
	return err
}

// update returns the recorded outcome and, when the snapshot was replaced with
// a different value, the new snapshot. Once the write lock is taken the outcome
// is published before it is released.
func (s *Store) update(document []byte, mode Mode) (UpdateOutcome, *Snapshot, error) {
	outcome := UpdateOutcome{Mode: mode}
	fail := func(err error) (UpdateOutcome, *Snapshot, error) {
		outcome.Result = ResultOf(err)
		outcome.Time = s.now()
		outcome.Message = err.Error()
		s.publish(outcome)
		return outcome, nil, err
	}

	scope, err := resolveScope(document, mode, s.namespace)
	if err != nil {
		return fail(err)
	}
	candidate, bundle := extractSnapshot(scope, s.defaults)
	outcome.Bundle = bundle
	if !scalarsAccepted(bundle) {
		return fail(fmt.Errorf("%w: rejected fields %v", ErrParse, bundle.Rejected()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fail(ErrClosed)
	}
	if err := s.ext.Update(scope); err != nil {
		if errors.Is(err, ErrTypeMismatch) {
			outcome.Bundle.EventPriorities = StatusTypeMismatch
			return fail(fmt.Errorf("%w: event priorities: %w", ErrParse, err))
		}
		return fail(fmt.Errorf("event priority extension failed: %w", err))
	}
	outcome.Bundle.EventPriorities = StatusOK

	previous := s.current
	s.current = candidate
	outcome.Result = ResultOK
	outcome.Time = s.now()
	s.publish(outcome)
	if previous == candidate {
		return outcome, nil, nil
	}
	return outcome, &candidate, nil
}

func (s *Store) publish(outcome UpdateOutcome) {
	s.outcome.Store(&outcome)
}

// Snapshot returns all scalar settings from a single applied update.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Snapshot{}, ErrClosed
	}
	return s.current, nil
}

func (s *Store) field(get func(Snapshot) uint32) (uint32, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return 0, err
	}
	return get(snap), nil
}

// MaxLocalCacheSize returns the local cache limit in bytes.
func (s *Store) MaxLocalCacheSize() (uint32, error) {
	return s.field(func(c Snapshot) uint32 { return c.MaxLocalCacheSize })
}

// MaxMessageSize returns the message size limit in bytes.
func (s *Store) MaxMessageSize() (uint32, error) {
	return s.field(func(c Snapshot) uint32 { return c.MaxMessageSize })
}

// HighPriorityMessageFrequency returns the high priority send interval in milliseconds.
func (s *Store) HighPriorityMessageFrequency() (uint32, error) {
	return s.field(func(c Snapshot) uint32 { return c.HighPriorityMessageFrequency })
}

// LowPriorityMessageFrequency returns the low priority send interval in milliseconds.
func (s *Store) LowPriorityMessageFrequency() (uint32, error) {
	return s.field(func(c Snapshot) uint32 { return c.LowPriorityMessageFrequency })
}

// SnapshotFrequency returns the snapshot interval in milliseconds.
func (s *Store) SnapshotFrequency() (uint32, error) {
	return s.field(func(c Snapshot) uint32 { return c.SnapshotFrequency })
}

// LastUpdateOutcome returns a copy of the most recent attempt's record.
func (s *Store) LastUpdateOutcome() UpdateOutcome {
	return *s.outcome.Load()
}

// OnChange registers a callback invoked after an update replaced the snapshot
// with a different value. Callbacks run outside the store lock but while the
// update is still in progress, so they must not call Update.
func (s *Store) OnChange(callback func(Snapshot)) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.changeCallbacks = append(s.changeCallbacks, callback)
}

// OnOutcome registers a callback invoked after every update attempt.
func (s *Store) OnOutcome(callback func(context.Context, UpdateOutcome)) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.outcomeCallbacks = append(s.outcomeCallbacks, callback)
}

func (s *Store) notifyChange(snap Snapshot) {
	s.callbackMu.RLock()
	callbacks := make([]func(Snapshot), len(s.changeCallbacks))
	copy(callbacks, s.changeCallbacks)
	s.callbackMu.RUnlock()
	for _, cb := range callbacks {
		cb(snap)
	}
}

func (s *Store) notifyOutcome(ctx context.Context, outcome UpdateOutcome) {
	s.callbackMu.RLock()
	callbacks := make([]func(context.Context, UpdateOutcome), len(s.outcomeCallbacks))
	copy(callbacks, s.outcomeCallbacks)
	s.callbackMu.RUnlock()
	for _, cb := range callbacks {
		cb(ctx, outcome)
	}
}
