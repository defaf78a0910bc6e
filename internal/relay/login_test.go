package relay

import (
	"testing"
	"time"
)

func TestLoginSnapshotBeforeAndAfterExpiry(t *testing.T) {
	current := time.Now()
	var loggedOut []string
	s := NewLoginSession(30, func(_ *int64, prevName string) {
		loggedOut = append(loggedOut, prevName)
	})
	s.now = func() time.Time { return current }

	s.Login(7, "anna")
	snap := s.Snapshot()
	if snap.UserID == nil || *snap.UserID != 7 || snap.UserName != "anna" {
		t.Fatalf("Unexpected snapshot: %+v", snap)
	}
	if snap.ExpiresAt == nil {
		t.Fatal("Expected an armed expiry clock")
	}

	// One minute short of the timeout the session holds.
	current = current.Add(29 * time.Minute)
	if snap := s.Snapshot(); snap.UserID == nil {
		t.Fatal("Session expired early")
	}

	current = current.Add(2 * time.Minute)
	snap = s.Snapshot()
	if snap.UserID != nil {
		t.Fatalf("Expected expired session, got %+v", snap)
	}
	if len(loggedOut) != 1 || loggedOut[0] != "anna" {
		t.Errorf("Expected one logout callback for anna, got %v", loggedOut)
	}

	// Repeated reads do not fire the callback again.
	s.Snapshot()
	if len(loggedOut) != 1 {
		t.Errorf("Expected exactly one logout callback, got %d", len(loggedOut))
	}
}

func TestZeroTimeoutNeverExpires(t *testing.T) {
	current := time.Now()
	s := NewLoginSession(0, nil)
	s.now = func() time.Time { return current }

	s.Login(7, "anna")
	current = current.Add(24 * time.Hour)
	if snap := s.Snapshot(); snap.UserID == nil {
		t.Error("Zero timeout must keep the session alive")
	}
}

func TestLogoutReportsPreviousOperator(t *testing.T) {
	s := NewLoginSession(30, nil)
	s.Login(7, "anna")

	prevID, prevName := s.Logout()
	if prevID == nil || *prevID != 7 || prevName != "anna" {
		t.Errorf("Unexpected previous operator: %v %q", prevID, prevName)
	}
	if snap := s.Snapshot(); snap.UserID != nil {
		t.Errorf("Expected logged-out state, got %+v", snap)
	}

	// Logging out twice is harmless.
	prevID, prevName = s.Logout()
	if prevID != nil || prevName != "" {
		t.Errorf("Second logout should report nothing, got %v %q", prevID, prevName)
	}
}

func TestSetTimeoutClamps(t *testing.T) {
	s := NewLoginSession(30, nil)

	tests := []struct {
		give int
		want int
	}{
		{give: -5, want: 0},
		{give: 0, want: 0},
		{give: 60, want: 60},
		{give: 480, want: 480},
		{give: 9999, want: 480},
	}
	for _, tc := range tests {
		if got := s.SetTimeout(tc.give); got != tc.want {
			t.Errorf("SetTimeout(%d) = %d, want %d", tc.give, got, tc.want)
		}
	}
}

func TestSetTimeoutRearmsActiveSession(t *testing.T) {
	current := time.Now()
	s := NewLoginSession(30, nil)
	s.now = func() time.Time { return current }
	s.Login(7, "anna")

	s.SetTimeout(0)
	if snap := s.Snapshot(); snap.ExpiresAt != nil {
		t.Error("Disabling the timeout must disarm the clock")
	}

	s.SetTimeout(10)
	snap := s.Snapshot()
	if snap.ExpiresAt == nil {
		t.Fatal("Re-enabling the timeout must re-arm the clock")
	}
	if want := current.Add(10 * time.Minute); !snap.ExpiresAt.Equal(want) {
		t.Errorf("Expected expiry at %v, got %v", want, snap.ExpiresAt)
	}
}
