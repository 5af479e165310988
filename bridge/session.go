package bridge

import (
	"path/filepath"
	"strconv"
	"sync"
)

const (
	// Callback payloads are capped at 64 bytes by the transport, so paths
	// travel as short sequential ids.
	defaultMaxRegistryEntries = 4096
	defaultMaxSessions        = 64
)

// Preferences is the per-conversation browse state.
type Preferences struct {
	Filter string
	Sort   string
}

func defaultPreferences() Preferences {
	return Preferences{Filter: FilterAll, Sort: SortRecent}
}

const (
	SortRecent = "recent"
	SortName   = "name"
)

// Session holds one conversation's path registry, browse preferences and
// the anchor (short id of the folder currently displayed). The poll loop is
// the only writer; transfer workers read paths by id concurrently, hence
// the mutex.
type Session struct {
	mu          sync.Mutex
	idToPath    map[string]string
	pathToID    map[string]string
	idOrder     []string
	nextID      int
	maxEntries  int
	prefs       Preferences
	anchor      string
}

func newSession(maxEntries int) *Session {
	if maxEntries <= 0 {
		maxEntries = defaultMaxRegistryEntries
	}
	return &Session{
		idToPath:   make(map[string]string),
		pathToID:   make(map[string]string),
		nextID:     1,
		maxEntries: maxEntries,
		prefs:      defaultPreferences(),
	}
}

// RegisterPath returns the short id for path, assigning the next sequential
// id on first sight. Registration is idempotent per resolved path and ids
// are never reused for a different path. When the registry is full the
// oldest entry is dropped; its id stays retired.
func (s *Session) RegisterPath(path string) string {
	resolved := filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sid, ok := s.pathToID[resolved]; ok {
		return sid
	}
	for len(s.idOrder) >= s.maxEntries {
		oldest := s.idOrder[0]
		s.idOrder = s.idOrder[1:]
		if p, ok := s.idToPath[oldest]; ok {
			delete(s.pathToID, p)
			delete(s.idToPath, oldest)
		}
	}
	sid := strconv.Itoa(s.nextID)
	s.nextID++
	s.idToPath[sid] = resolved
	s.pathToID[resolved] = sid
	s.idOrder = append(s.idOrder, sid)
	return sid
}

// ResolvePath returns the path registered under sid.
func (s *Session) ResolvePath(sid string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.idToPath[sid]
	return p, ok
}

func (s *Session) Prefs() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *Session) SetFilter(filter string) {
	if !ValidFilter(filter) {
		filter = FilterAll
	}
	s.mu.Lock()
	s.prefs.Filter = filter
	s.mu.Unlock()
}

func (s *Session) SetSort(sort string) {
	if sort != SortName {
		sort = SortRecent
	}
	s.mu.Lock()
	s.prefs.Sort = sort
	s.mu.Unlock()
}

func (s *Session) SetPrefs(filter, sort string) {
	s.SetFilter(filter)
	s.SetSort(sort)
}

// Anchor is the short id of the folder currently shown, empty at root list.
func (s *Session) Anchor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

func (s *Session) SetAnchor(sid string) {
	s.mu.Lock()
	s.anchor = sid
	s.mu.Unlock()
}

// Sessions is a bounded per-conversation session cache. Conversations are
// evicted least-recently-used once the cap is reached; an evicted
// conversation simply starts a fresh session on its next interaction.
type Sessions struct {
	mu       sync.Mutex
	byChat   map[int64]*Session
	order    []int64
	maxChats int
	maxReg   int
}

func NewSessions(maxChats, maxRegistryEntries int) *Sessions {
	if maxChats <= 0 {
		maxChats = defaultMaxSessions
	}
	return &Sessions{
		byChat:   make(map[int64]*Session),
		maxChats: maxChats,
		maxReg:   maxRegistryEntries,
	}
}

// Get returns the chat's session, creating it lazily.
func (ss *Sessions) Get(chatID int64) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if sess, ok := ss.byChat[chatID]; ok {
		ss.touchLocked(chatID)
		return sess
	}
	for len(ss.order) >= ss.maxChats {
		oldest := ss.order[0]
		ss.order = ss.order[1:]
		delete(ss.byChat, oldest)
	}
	sess := newSession(ss.maxReg)
	ss.byChat[chatID] = sess
	ss.order = append(ss.order, chatID)
	return sess
}

func (ss *Sessions) touchLocked(chatID int64) {
	for i, id := range ss.order {
		if id == chatID {
			ss.order = append(ss.order[:i], ss.order[i+1:]...)
			ss.order = append(ss.order, chatID)
			return
		}
	}
}

// Len reports the number of live sessions.
func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byChat)
}
