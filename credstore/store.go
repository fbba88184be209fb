package credstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shopuda/shopclient/dto"
)

const credentialFile = "credentials.json"

// Store persists the credential pair as a JSON file under a per-user
// directory and keeps an in-memory copy as the source of truth. When the
// directory cannot be created or written, the store degrades to memory-only:
// every call still succeeds, credentials just do not survive the process.
type Store struct {
	mu   sync.RWMutex
	pair dto.CredentialPair
	has  bool

	path string // empty when memory-only
	log  zerolog.Logger
}

// New loads any previously persisted pair from dir. A dir of "" selects
// memory-only mode explicitly.
func New(dir string, log zerolog.Logger) *Store {
	s := &Store{log: log}
	if dir == "" {
		return s
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("credential storage unavailable, using memory only")
		return s
	}
	s.path = filepath.Join(dir, credentialFile)
	s.load()
	return s
}

func (s *Store) Get() (dto.CredentialPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.has
}

func (s *Store) Set(pair dto.CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.has = pair.Authenticated()
	return s.persist()
}

// Clear drops both tokens and the remembered user atomically.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = dto.CredentialPair{}
	s.has = false
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Msg("remove credential file")
		return err
	}
	return nil
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Msg("read credential file")
		}
		return
	}
	var pair dto.CredentialPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		s.log.Warn().Err(err).Msg("corrupt credential file, ignoring")
		return
	}
	s.pair = pair
	s.has = pair.Authenticated()
}

// persist is called with s.mu held.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.Marshal(s.pair)
	if err != nil {
		return err
	}
	// Write-then-rename so a crash never leaves a half-written pair.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		s.log.Warn().Err(err).Msg("persist credentials, continuing memory only")
		return nil
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn().Err(err).Msg("persist credentials, continuing memory only")
		return nil
	}
	return nil
}
