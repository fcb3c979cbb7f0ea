package store

import "time"

// NoticeLevel grades a notice for display styling.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Notice is a transient user-facing message, shown as a toast in the UI.
type Notice struct {
	Level   NoticeLevel
	Message string
	Time    time.Time
}

// Notify queues a notice. When the queue is full (nobody draining, e.g. in
// headless commands) the notice is dropped rather than blocking a mutation.
func (s *Store) Notify(level NoticeLevel, message string) {
	n := Notice{Level: level, Message: message, Time: time.Now()}
	select {
	case s.notices <- n:
	default:
		s.logger.Debug("notice dropped", "message", message)
	}
}

// Notices is the stream the UI drains for toasts.
func (s *Store) Notices() <-chan Notice {
	return s.notices
}
