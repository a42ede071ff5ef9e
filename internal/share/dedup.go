package share

import (
	"strings"
	"sync"
)

// Deduper remembers which concrete shares have already been sent, so a
// share is never retransmitted while the surrounding phase is unchanged.
// Membership only; Clear is called on phase and session boundaries.
type Deduper struct {
	mu   sync.Mutex
	sent map[string]struct{}
}

func NewDeduper() *Deduper {
	return &Deduper{sent: make(map[string]struct{})}
}

// SentSignature builds the dedup key for a concrete share. A zero chroma
// is the "no chroma" value and part of the signature on purpose: sharing
// the same skin with a different chroma is a new share.
func SentSignature(friendID string, championID, skinID, chromaID int64) string {
	return strings.Join([]string{
		strings.TrimSpace(friendID),
		itoa(championID),
		itoa(skinID),
		itoa(chromaID),
	}, "|")
}

// WasSent reports whether the signature was marked since the last Clear.
func (d *Deduper) WasSent(sig string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sent[sig]
	return ok
}

// MarkSent records the signature.
func (d *Deduper) MarkSent(sig string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent[sig] = struct{}{}
}

// Clear drops all signatures.
func (d *Deduper) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.sent)
}

// Size returns the number of recorded signatures.
func (d *Deduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}
