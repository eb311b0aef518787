package twinconfig

import (
	"errors"
	"time"
)

// Option configures a Store.
type Option func(*Store) error

// WithDefaults replaces the compiled defaults for this store instance.
func WithDefaults(s Snapshot) Option {
	return func(st *Store) error {
		st.defaults = s
		return nil
	}
}

// WithNamespace sets the object name fields are read from and reported under.
func WithNamespace(name string) Option {
	return func(st *Store) error {
		if name == "" {
			return errors.New("namespace must not be empty")
		}
		st.namespace = name
		return nil
	}
}

// WithExtension installs the event-priority extension.
func WithExtension(ext Extension) Option {
	return func(st *Store) error {
		if ext == nil {
			return errors.New("extension must not be nil")
		}
		st.ext = ext
		return nil
	}
}

// WithClock overrides the time source used for outcome timestamps.
func WithClock(now func() time.Time) Option {
	return func(st *Store) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		st.now = now
		return nil
	}
}
