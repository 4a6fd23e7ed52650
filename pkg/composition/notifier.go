package composition

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Notifier surfaces the outcome of a user action as a transient message. It is
// the only place a failed store call ends up; nothing is retried.
type Notifier interface {
	Success(ctx context.Context, message string)
	Failure(ctx context.Context, message string, err error)
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Success(ctx context.Context, message string) {
	n.Logger.Info().Msg(message)
}

func (n LogNotifier) Failure(ctx context.Context, message string, err error) {
	n.Logger.Error().Err(err).Msg(message)
}

// Notice is one recorded notification.
type Notice struct {
	Message string
	Err     error
}

func (n Notice) Failed() bool { return n.Err != nil }

// Recorder keeps notifications in memory, newest last.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Success(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Message: message})
}

func (r *Recorder) Failure(ctx context.Context, message string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Message: message, Err: err})
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice, or false when there is none.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
