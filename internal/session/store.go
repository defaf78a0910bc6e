// Package session holds the client-local copy of the scan session: the
// current article and the operator login. Each client's copy is a cache fed
// by relay broadcasts and lookup responses; it is eventually consistent and
// never authoritative.
package session

import (
	"sync"
	"time"
)

// Article is the product the session is currently on. EAN and Name come from
// the push channel; Qty, ShopID and ImageUploaded come only from lookups and
// local edits, because the push channel knows nothing beyond the bare scan.
type Article struct {
	EAN           string
	Name          string
	ShopID        *int64
	Qty           float64
	ImageUploaded bool
}

// LoginState mirrors who is logged in at the capture station. A nil UserID
// means scan-only mode; anything else enables manual edits.
type LoginState struct {
	UserID         *int64
	UserName       string
	ExpiresAt      *time.Time
	TimeoutMinutes int
}

// CaptureMode reports whether manual edits are permitted.
func (l LoginState) CaptureMode() bool {
	return l.UserID != nil
}

// Change identifies which part of the session a notification refers to.
type Change int

const (
	ChangedArticle Change = iota
	ChangedLogin
)

// Store is the session state store. Every mutation is last-write-wins per
// field; there is no versioning beyond message order. A Store belongs to
// exactly one client runtime and must not be shared across processes.
type Store struct {
	mu       sync.Mutex
	article  Article
	login    LoginState
	onChange func(Change)
}

// New returns an empty store. onChange, if non-nil, is invoked after every
// effective mutation, outside the store's lock.
func New(onChange func(Change)) *Store {
	if onChange == nil {
		onChange = func(Change) {}
	}
	return &Store{onChange: onChange}
}

// Article returns a copy of the current article.
func (s *Store) Article() Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.article
}

// Login returns a copy of the current login state.
func (s *Store) Login() LoginState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login
}

// SetCurrentArticle replaces the article identity wholesale. When the EAN
// changes, the enrichment fields fall back to their defaults (qty 1, no shop,
// no photo) until a lookup fills them in again.
func (s *Store) SetCurrentArticle(ean, name string) {
	s.mu.Lock()
	if ean != s.article.EAN {
		s.article = Article{EAN: ean, Name: name, Qty: 1}
	} else {
		s.article.Name = name
	}
	s.mu.Unlock()
	s.onChange(ChangedArticle)
}

// ApplyLookup merges an enriched article into the store, but only if the
// session is still on the same EAN. A slow response for a previous scan is
// discarded so it cannot clobber a newer scan's state.
func (s *Store) ApplyLookup(a Article) bool {
	s.mu.Lock()
	if a.EAN != s.article.EAN {
		s.mu.Unlock()
		return false
	}
	s.article = a
	s.mu.Unlock()
	s.onChange(ChangedArticle)
	return true
}

// SetName overwrites only the article name (local edit or save_name echo).
func (s *Store) SetName(name string) {
	s.mu.Lock()
	s.article.Name = name
	s.mu.Unlock()
	s.onChange(ChangedArticle)
}

// MarkImageUploaded records that a photo exists for the current article.
// Returns false when the EAN no longer matches.
func (s *Store) MarkImageUploaded(ean string) bool {
	s.mu.Lock()
	if ean != s.article.EAN {
		s.mu.Unlock()
		return false
	}
	s.article.ImageUploaded = true
	s.mu.Unlock()
	s.onChange(ChangedArticle)
	return true
}

// SetLogin switches the session into capture mode for the given operator.
func (s *Store) SetLogin(userID int64, userName string) {
	s.mu.Lock()
	s.login.UserID = &userID
	s.login.UserName = userName
	s.mu.Unlock()
	s.onChange(ChangedLogin)
}

// ClearLogin switches the session back into scan-only mode.
func (s *Store) ClearLogin() {
	s.mu.Lock()
	s.login.UserID = nil
	s.login.UserName = ""
	s.login.ExpiresAt = nil
	s.mu.Unlock()
	s.onChange(ChangedLogin)
}

// ReconcilePoll folds a polled /api/current_user snapshot into the store
// under the same last-write-wins rule as the push path. It only notifies
// when the effective login identity actually changed.
func (s *Store) ReconcilePoll(userID *int64, userName string, timeoutMinutes int, expiresAt *time.Time) {
	s.mu.Lock()
	changed := !sameUser(s.login.UserID, userID) || s.login.UserName != userName
	s.login = LoginState{
		UserID:         userID,
		UserName:       userName,
		ExpiresAt:      expiresAt,
		TimeoutMinutes: timeoutMinutes,
	}
	s.mu.Unlock()
	if changed {
		s.onChange(ChangedLogin)
	}
}

func sameUser(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
