package transport

import "sync"

// UploadBuffer holds at most one encoded upload frame while the transport is
// down. Staging replaces whatever was there; once the article moves on, only
// the latest photo matters. Delivery is at most once: a frame taken for a
// flush is never restored, even if the send straddles a close.
type UploadBuffer struct {
	mu    sync.Mutex
	ean   string
	frame []byte
}

// Stage replaces any pending payload unconditionally.
func (b *UploadBuffer) Stage(ean string, frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ean = ean
	b.frame = frame
}

// Take removes and returns the pending frame, if any.
func (b *UploadBuffer) Take() (ean string, frame []byte, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return "", nil, false
	}
	ean, frame = b.ean, b.frame
	b.ean, b.frame = "", nil
	return ean, frame, true
}

// Pending reports whether a payload is staged, and for which EAN.
func (b *UploadBuffer) Pending() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ean, b.frame != nil
}
