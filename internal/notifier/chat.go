package notifier

import "sync"

// ChatRegistry holds the chat that receives reminders. Empty means
// reminders are disabled.
type ChatRegistry struct {
	mu     sync.RWMutex
	chatID string
}

// NewChatRegistry returns a registry seeded with chatID (may be empty).
func NewChatRegistry(chatID string) *ChatRegistry {
	return &ChatRegistry{chatID: chatID}
}

// Get returns the saved chat id.
func (r *ChatRegistry) Get() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chatID
}

// Set replaces the saved chat id.
func (r *ChatRegistry) Set(chatID string) {
	r.mu.Lock()
	r.chatID = chatID
	r.mu.Unlock()
}
