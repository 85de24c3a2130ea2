// Package settings holds the versioned session profile that temporal
// derivation runs under.
package settings

import (
	"context"
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/storage/archive"
	"github.com/newthinker/zella/internal/temporal"
)

// ProfileName is the archive name of the persisted profile.
const ProfileName = "sessions"

// Listener is called after every accepted update.
type Listener func(p temporal.Profile, version uint64)

// Store is the session profile holder. Every accepted update bumps a
// monotonic version.
type Store struct {
	// writeMu orders persist-then-apply so the archived profile is always
	// the active one.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	profile   temporal.Profile
	version   uint64
	archive   archive.Storage
	logger    *zap.Logger
	listeners []Listener
}

// New creates a store at version 1. archive may be nil to disable
// persistence.
func New(initial temporal.Profile, arch archive.Storage, logger *zap.Logger) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{profile: initial, version: 1, archive: arch, logger: logger}, nil
}

// Load replaces the profile with the persisted one, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	data, err := s.archive.Read(ctx, archive.ProfilePath(ProfileName))
	if errors.Is(err, core.ErrNoData) {
		return nil
	}
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	var p temporal.Profile
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	_, err = s.apply(p)
	if err == nil {
		s.logger.Info("loaded persisted session profile", zap.String("zone", p.Sessions.Zone))
	}
	return err
}

// Current returns the active profile and its version.
func (s *Store) Current() (temporal.Profile, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.version
}

// Update validates and installs p, persists it and notifies listeners.
func (s *Store) Update(ctx context.Context, p temporal.Profile) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, core.WrapError(core.ErrConfigInvalid, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.archive != nil {
		data, err := jsoniter.Marshal(p)
		if err != nil {
			return 0, core.WrapError(core.ErrStoreFailed, err)
		}
		if err := s.archive.Write(ctx, archive.ProfilePath(ProfileName), data); err != nil {
			return 0, core.WrapError(core.ErrStoreFailed, err)
		}
	}
	return s.apply(p)
}

func (s *Store) apply(p temporal.Profile) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, core.WrapError(core.ErrConfigInvalid, err)
	}
	s.mu.Lock()
	s.profile = p
	s.version++
	version := s.version
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Info("session profile updated", zap.Uint64("version", version))
	for _, l := range listeners {
		l(p, version)
	}
	return version, nil
}

// Subscribe registers l for future updates.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
