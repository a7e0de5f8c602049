// ABOUTME: Toast notifications surfaced to the console user
// ABOUTME: Per-session queues drained into the next rendered page

package console

import (
	"sync"
)

// Toast levels.
const (
	ToastInfo    = "info"
	ToastSuccess = "success"
	ToastError   = "error"
)

// Toast is one transient notification.
type Toast struct {
	Level   string
	Message string
}

// Notifier receives failure and status reports from wizard hooks and
// handlers. The wizard engine itself never sees it; hooks report
// through it and return false.
type Notifier interface {
	Notify(level, message string)
}

// toastHub queues toasts per console session until the next page render
// drains them.
type toastHub struct {
	mu     sync.Mutex
	queues map[string][]Toast
}

func newToastHub() *toastHub {
	return &toastHub{queues: make(map[string][]Toast)}
}

// Push appends a toast for the given session.
func (h *toastHub) Push(sessionID, level, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queues[sessionID] = append(h.queues[sessionID], Toast{Level: level, Message: message})
}

// Drain returns and clears the pending toasts for a session.
func (h *toastHub) Drain(sessionID string) []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	toasts := h.queues[sessionID]
	delete(h.queues, sessionID)
	return toasts
}

// Forget drops any pending toasts for a session, e.g. on logout.
func (h *toastHub) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.queues, sessionID)
}

// sessionNotifier binds the hub to one session id.
type sessionNotifier struct {
	hub       *toastHub
	sessionID string
}

func (n *sessionNotifier) Notify(level, message string) {
	n.hub.Push(n.sessionID, level, message)
}
