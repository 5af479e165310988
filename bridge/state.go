package bridge

import (
	"path/filepath"
	"sync"

	"github.com/pixieuiii/pixiebridge/internal/fsstore"
)

const stateFileName = "bridge_state.json"

// State is the durable part of the bridge: the poll cursor and the chat
// that receives host-initiated pushes.
type State struct {
	LastUpdateID  int64 `json:"last_update_id"`
	PrimaryChatID int64 `json:"primary_chat_id"`
}

// StateStore persists State atomically under the state directory. Every
// mutation is written through before it is acted on, so a crash never
// replays an already-claimed update.
type StateStore struct {
	mu    sync.Mutex
	path  string
	state State
	known bool
}

func NewStateStore(stateDir string) *StateStore {
	return &StateStore{path: filepath.Join(stateDir, stateFileName)}
}

// Load reads the persisted record if one exists. A missing file is not an
// error: the bridge starts fresh from the newest update.
func (s *StateStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st State
	found, err := fsstore.ReadJSON(s.path, &st)
	if err != nil {
		return err
	}
	if found {
		s.state = st
		s.known = true
	}
	return nil
}

// Cursor returns the last processed update id and whether any cursor has
// ever been persisted.
func (s *StateStore) Cursor() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastUpdateID, s.known
}

// Claim records updateID as processed and persists before returning.
// Callers must claim before dispatching the update.
func (s *StateStore) Claim(updateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.known && updateID <= s.state.LastUpdateID {
		return nil
	}
	prev := s.state
	prevKnown := s.known
	s.state.LastUpdateID = updateID
	s.known = true
	if err := s.persistLocked(); err != nil {
		s.state = prev
		s.known = prevKnown
		return err
	}
	return nil
}

// PrimaryChat returns the chat that receives pushes, zero when unset.
func (s *StateStore) PrimaryChat() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PrimaryChatID
}

// SetPrimaryChat persists chatID as the push target. It is only called on
// an explicit /start or set-chat request, never on arbitrary inbound
// traffic.
func (s *StateStore) SetPrimaryChat(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.PrimaryChatID == chatID {
		return nil
	}
	prev := s.state.PrimaryChatID
	s.state.PrimaryChatID = chatID
	if err := s.persistLocked(); err != nil {
		s.state.PrimaryChatID = prev
		return err
	}
	return nil
}

func (s *StateStore) persistLocked() error {
	return fsstore.WriteJSONAtomic(s.path, s.state, fsstore.FileOptions{})
}
