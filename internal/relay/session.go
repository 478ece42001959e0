package relay

import (
	"strconv"
	"time"

	"github.com/channelgate/channelgate/internal/types"
	gocache "github.com/patrickmn/go-cache"
)

// Session is one pending URL upload awaiting confirmation or a rename. The
// store bounds sessions by TTL so an abandoned flow expires on its own;
// nothing about the relay feature persists.
type Session struct {
	ID           string
	ChatID       int64
	URL          string
	OriginalName string
	NewName      string
	Size         int64
	ContentType  string
	CreatedAt    time.Time
}

// FinalName returns the filename the upload should use.
func (s *Session) FinalName() string {
	if s.NewName != "" {
		return s.NewName
	}
	return s.OriginalName
}

// SessionStore keeps pending-upload sessions keyed by chat id.
type SessionStore struct {
	cache *gocache.Cache
}

// NewSessionStore creates a session store with the given TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		cache: gocache.New(ttl, ttl),
	}
}

// Put stores the session for its chat, replacing any previous one.
func (s *SessionStore) Put(session *Session) {
	if session.ID == "" {
		session.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RELAY_SESSION)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	s.cache.SetDefault(sessionKey(session.ChatID), session)
}

// Get returns the pending session for a chat, or nil.
func (s *SessionStore) Get(chatID int64) *Session {
	if v, ok := s.cache.Get(sessionKey(chatID)); ok {
		return v.(*Session)
	}
	return nil
}

// Delete removes the pending session for a chat.
func (s *SessionStore) Delete(chatID int64) {
	s.cache.Delete(sessionKey(chatID))
}

func sessionKey(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}
