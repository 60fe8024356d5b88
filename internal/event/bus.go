// Package event carries completion-change notifications between the
// scheduling core and its consumers through a typed subscribe/publish
// contract instead of an implicit global notification channel.
package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CompletionChange is published whenever a task's completion state
// changes, whatever triggered it.
type CompletionChange struct {
	EventID     string
	TaskID      uint
	IsCompleted bool
	CompletedAt *time.Time
	// SubtasksChanged reports whether descendant subtasks changed state
	// as part of the same operation, so consumers showing the same task
	// elsewhere can resynchronize.
	SubtasksChanged bool
	// Source labels the triggering operation: "toggle", "cascade" or
	// "auto".
	Source string
}

// NewCompletionChange stamps a fresh event envelope.
func NewCompletionChange(taskID uint, completed bool, completedAt *time.Time, subtasksChanged bool, source string) CompletionChange {
	return CompletionChange{
		EventID:         uuid.NewString(),
		TaskID:          taskID,
		IsCompleted:     completed,
		CompletedAt:     completedAt,
		SubtasksChanged: subtasksChanged,
		Source:          source,
	}
}

// Handler receives published completion changes.
type Handler func(CompletionChange)

// Bus delivers completion changes synchronously to all subscribers.
// Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers the change to every current subscriber.
func (b *Bus) Publish(change CompletionChange) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
}
