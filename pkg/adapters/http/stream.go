package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  string
}

// StreamManager fans task events out to SSE subscribers.
// Subscribers registered with an empty run id receive every run.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Message]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan Message]struct{}),
	}
}

// Subscribe registers a buffered channel for runID. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(runID string) (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 64)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan Message]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[runID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, runID)
				}
			}
		})
	}
}

// Broadcast delivers msg to the subscribers of runID and to the global ones.
// Slow subscribers lose messages instead of blocking the executor.
func (sm *StreamManager) Broadcast(runID string, msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	targets := []string{""}
	if runID != "" {
		targets = append(targets, runID)
	}
	for _, key := range targets {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				slog.Warn("SSE: client buffer full, dropping message", "run_id", runID)
			}
		}
	}
}

type taskPayload struct {
	*domain.TaskEvent
	Error string `json:"error,omitempty"`
}

// Hooks returns lifecycle hooks that broadcast every executor event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	task := func(_ context.Context, e *domain.TaskEvent) {
		payload := taskPayload{TaskEvent: e}
		if e.Err != nil {
			payload.Error = e.Err.Error()
		}
		sm.publish(e.RunID, e.Type, payload)
	}
	return domain.LifecycleHooks{
		OnTaskEnter: task,
		OnTaskLeave: task,
		OnTaskSkip:  task,
		OnTaskError: task,
		OnFork: func(_ context.Context, e *domain.ForkEvent) {
			sm.publish(e.RunID, e.Type, e)
		},
	}
}

func (sm *StreamManager) publish(runID string, kind domain.EventType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	sm.Broadcast(runID, Message{Event: string(kind), Data: string(data)})
}
