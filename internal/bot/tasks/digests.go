package tasks

import "sync"

// DigestRegistry tracks which chats receive the weekly digest. Membership is
// toggled at runtime by bot commands and read by the digest task.
type DigestRegistry struct {
	mu    sync.RWMutex
	chats map[int64]struct{}
}

// NewDigestRegistry creates an empty registry.
func NewDigestRegistry() *DigestRegistry {
	return &DigestRegistry{chats: make(map[int64]struct{})}
}

// Enable subscribes a chat to the weekly digest.
func (r *DigestRegistry) Enable(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chatID] = struct{}{}
}

// Disable unsubscribes a chat. Unknown chats are a no-op.
func (r *DigestRegistry) Disable(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chats, chatID)
}

// Enabled reports whether a chat is subscribed.
func (r *DigestRegistry) Enabled(chatID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.chats[chatID]
	return ok
}

// Chats returns a snapshot of the subscribed chat ids.
func (r *DigestRegistry) Chats() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.chats))
	for id := range r.chats {
		ids = append(ids, id)
	}
	return ids
}
