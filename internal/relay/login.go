package relay

import (
	"sync"
	"time"
)

// LoginSession is the relay-side operator session. Expiry is lazy: it is
// checked whenever the state is read, and a timed-out operator is logged out
// at that point, with the logout broadcast to every client.
type LoginSession struct {
	mu             sync.Mutex
	userID         *int64
	userName       string
	timeoutMinutes int
	expiresAt      *time.Time

	// onLogout is invoked outside the lock after an expiry or explicit
	// logout, with the previous operator.
	onLogout func(prevID *int64, prevName string)
	now      func() time.Time
}

// NewLoginSession creates a session with the given timeout policy.
// timeoutMinutes of 0 disables expiry.
func NewLoginSession(timeoutMinutes int, onLogout func(prevID *int64, prevName string)) *LoginSession {
	if onLogout == nil {
		onLogout = func(*int64, string) {}
	}
	return &LoginSession{
		timeoutMinutes: timeoutMinutes,
		onLogout:       onLogout,
		now:            time.Now,
	}
}

// Login starts a session for an operator and arms the expiry clock.
func (s *LoginSession) Login(userID int64, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = &userID
	s.userName = userName
	if s.timeoutMinutes > 0 {
		t := s.now().Add(time.Duration(s.timeoutMinutes) * time.Minute)
		s.expiresAt = &t
	} else {
		s.expiresAt = nil
	}
}

// Logout ends the session, reporting the previous operator.
func (s *LoginSession) Logout() (*int64, string) {
	s.mu.Lock()
	prevID, prevName := s.userID, s.userName
	s.userID = nil
	s.userName = ""
	s.expiresAt = nil
	s.mu.Unlock()
	return prevID, prevName
}

// Snapshot returns the current state after applying lazy expiry.
type LoginSnapshot struct {
	UserID         *int64
	UserName       string
	TimeoutMinutes int
	ExpiresAt      *time.Time
}

// Snapshot reads the session state. When the session has expired it is
// cleared first and the logout hook fires.
func (s *LoginSession) Snapshot() LoginSnapshot {
	s.mu.Lock()
	if s.userID != nil && s.expiresAt != nil && !s.now().Before(*s.expiresAt) {
		prevID, prevName := s.userID, s.userName
		s.userID = nil
		s.userName = ""
		s.expiresAt = nil
		s.mu.Unlock()
		s.onLogout(prevID, prevName)
		s.mu.Lock()
	}
	snap := LoginSnapshot{
		UserID:         s.userID,
		UserName:       s.userName,
		TimeoutMinutes: s.timeoutMinutes,
		ExpiresAt:      s.expiresAt,
	}
	s.mu.Unlock()
	return snap
}

// SetTimeout changes the timeout policy, clamped to [0, 480] minutes, and
// re-arms the clock for a logged-in operator.
func (s *LoginSession) SetTimeout(minutes int) int {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 480 {
		minutes = 480
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeoutMinutes = minutes
	switch {
	case s.userID != nil && minutes > 0:
		t := s.now().Add(time.Duration(minutes) * time.Minute)
		s.expiresAt = &t
	case s.userID != nil:
		s.expiresAt = nil
	}
	return s.timeoutMinutes
}
