package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultClipTTL bounds how long an unfetched clip is kept.
const DefaultClipTTL = 2 * time.Minute

// ErrClipExpired is reported by a clip stream that was never fetched.
var ErrClipExpired = errors.New("clip expired before it was fetched")

// ClipStore is a Player for HTTP clients: each clip is held in memory under a
// random id until it is fetched once or its TTL elapses.
type ClipStore struct {
	// BasePath is prefixed to the clip id to form the stream location.
	BasePath string
	TTL      time.Duration

	mu    sync.Mutex
	clips map[string]*clipEntry
}

type clipEntry struct {
	wav   []byte
	done  chan error
	timer *time.Timer
	once  sync.Once
}

func (e *clipEntry) finish(err error) {
	e.once.Do(func() {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.done <- err
		close(e.done)
	})
}

// NewClipStore returns a store serving clips under basePath.
func NewClipStore(basePath string, ttl time.Duration) *ClipStore {
	if ttl <= 0 {
		ttl = DefaultClipTTL
	}
	return &ClipStore{BasePath: basePath, TTL: ttl, clips: map[string]*clipEntry{}}
}

func (s *ClipStore) Start(_ context.Context, clip Clip) (Stream, error) {
	if len(clip.WAV) == 0 {
		return nil, errors.New("clip is empty")
	}
	id := uuid.NewString()
	entry := &clipEntry{wav: clip.WAV, done: make(chan error, 1)}

	s.mu.Lock()
	if s.clips == nil {
		s.clips = map[string]*clipEntry{}
	}
	s.clips[id] = entry
	entry.timer = time.AfterFunc(s.ttl(), func() {
		s.remove(id)
		entry.finish(ErrClipExpired)
	})
	s.mu.Unlock()

	return &clipStream{store: s, id: id, entry: entry}, nil
}

// Fetch returns a clip's WAV bytes and forgets it. A clip can be fetched once.
func (s *ClipStore) Fetch(id string) ([]byte, bool) {
	entry := s.remove(id)
	if entry == nil {
		return nil, false
	}
	entry.finish(nil)
	return entry.wav, true
}

// Len reports how many clips are waiting to be fetched.
func (s *ClipStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

func (s *ClipStore) remove(id string) *clipEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.clips[id]
	if !ok {
		return nil
	}
	delete(s.clips, id)
	return entry
}

func (s *ClipStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultClipTTL
	}
	return s.TTL
}

type clipStream struct {
	store *ClipStore
	id    string
	entry *clipEntry
}

func (c *clipStream) Location() string { return c.store.BasePath + c.id }

func (c *clipStream) Wait() error { return <-c.entry.done }

func (c *clipStream) Release() error {
	c.store.remove(c.id)
	c.entry.finish(nil)
	return nil
}
