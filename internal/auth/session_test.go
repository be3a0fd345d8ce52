package auth

import (
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestSessionManager(ttl time.Duration) (*SessionManager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewSessionManager(ttl)
	m.now = clock.Now
	return m, clock
}

func TestSessionIssueAndExpire(t *testing.T) {
	t.Parallel()

	m, clock := newTestSessionManager(time.Hour)

	var sess Session
	if state, _ := m.Read(sess); state != StateAnonymous {
		t.Fatalf("zero session should be anonymous, got %v", state)
	}

	m.Issue(&sess, "user-1")
	state, id := m.Read(sess)
	if state != StateAuthenticated || id != "user-1" {
		t.Fatalf("Read = (%v, %q), want (authenticated, user-1)", state, id)
	}

	clock.now = clock.now.Add(59 * time.Minute)
	if state, _ := m.Read(sess); state != StateAuthenticated {
		t.Fatalf("session should still be valid before TTL, got %v", state)
	}

	clock.now = clock.now.Add(time.Minute)
	if state, id := m.Read(sess); state != StateAnonymous || id != "" {
		t.Fatalf("expired session Read = (%v, %q)", state, id)
	}
}

func TestSessionTerminate(t *testing.T) {
	t.Parallel()

	m, _ := newTestSessionManager(time.Hour)

	cases := []Session{
		{},
		{UserID: "user-1", Authenticated: true},
	}
	m.Issue(&cases[1], "user-1")

	for _, sess := range cases {
		m.Terminate(&sess)
		if state, id := m.Read(sess); state != StateAnonymous || id != "" {
			t.Fatalf("terminated session Read = (%v, %q)", state, id)
		}
	}
}

func TestSessionManagerDefaults(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(0)
	if m.TTL() != DefaultSessionTTL {
		t.Fatalf("TTL = %v, want %v", m.TTL(), DefaultSessionTTL)
	}
	if m.MaxAgeSeconds() != 3600 {
		t.Fatalf("MaxAgeSeconds = %d, want 3600", m.MaxAgeSeconds())
	}
}

// memorySession は sessions.Session のテスト用実装です。
type memorySession struct {
	values  map[interface{}]interface{}
	options *sessions.Options
	saved   int
}

func newMemorySession() *memorySession {
	return &memorySession{values: map[interface{}]interface{}{}}
}

func (s *memorySession) ID() string { return "" }
func (s *memorySession) Get(key interface{}) interface{} { return s.values[key] }
func (s *memorySession) Set(key, val interface{}) { s.values[key] = val }
func (s *memorySession) Delete(key interface{}) { delete(s.values, key) }
func (s *memorySession) Clear() { s.values = map[interface{}]interface{}{} }
func (s *memorySession) AddFlash(interface{}, ...string) {}
func (s *memorySession) Flashes(...string) []interface{} { return nil }
func (s *memorySession) Options(options sessions.Options) { s.options = &options }
func (s *memorySession) Save() error {
	s.saved++
	return nil
}

func TestSessionPersistAndLoad(t *testing.T) {
	t.Parallel()

	m, _ := newTestSessionManager(time.Hour)
	store := newMemorySession()

	var sess Session
	m.Issue(&sess, "user-1")
	if err := m.Persist(store, sess); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if store.saved != 1 {
		t.Fatalf("Save called %d times, want 1", store.saved)
	}
	if store.options == nil || store.options.MaxAge != 3600 || !store.options.HttpOnly {
		t.Fatalf("unexpected cookie options: %+v", store.options)
	}

	loaded := m.Load(store)
	if state, id := m.Read(loaded); state != StateAuthenticated || id != "user-1" {
		t.Fatalf("loaded session Read = (%v, %q)", state, id)
	}
	if !loaded.ExpiresAt.Equal(sess.ExpiresAt.Truncate(time.Second)) {
		t.Fatalf("ExpiresAt = %v, want %v", loaded.ExpiresAt, sess.ExpiresAt)
	}

	m.Terminate(&loaded)
	if err := m.Persist(store, loaded); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatalf("anonymous session should clear values, got %v", store.values)
	}
	if store.options == nil || store.options.MaxAge >= 0 {
		t.Fatalf("anonymous session should expire the cookie, got %+v", store.options)
	}
	if state, _ := m.Read(m.Load(store)); state != StateAnonymous {
		t.Fatalf("cleared cookie should load as anonymous, got %v", state)
	}
}
