package state

import "sync"

type memoryStore struct {
	mu    sync.RWMutex
	convs map[int64]Conversation
}

// NewMemoryStore constructs the in-memory Store used by the bot.
func NewMemoryStore() Store {
	return &memoryStore{convs: make(map[int64]Conversation)}
}

// Get returns the conversation for a chat if one is in progress.
func (m *memoryStore) Get(chatID int64) (Conversation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.convs[chatID]
	return conv, ok
}

// Put creates or replaces the conversation for a chat.
func (m *memoryStore) Put(chatID int64, conv Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[chatID] = conv
}

// Delete removes the conversation for a chat; missing entries are ignored.
func (m *memoryStore) Delete(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, chatID)
}

// Len returns the number of in-progress conversations.
func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.convs)
}
