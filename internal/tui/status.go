package tui

import (
	"fmt"
	"sync"

	"github.com/jask/annotator/internal/editor"
)

// StatusRecorder remembers the last mutation outcome for the status line and
// forwards everything to next.
type StatusRecorder struct {
	next editor.Recorder

	mu      sync.Mutex
	op      string
	outcome string
	count   int
}

func NewStatusRecorder(next editor.Recorder) *StatusRecorder {
	return &StatusRecorder{next: next}
}

func (r *StatusRecorder) Mutation(op, outcome string) {
	r.mu.Lock()
	r.op, r.outcome = op, outcome
	r.mu.Unlock()
	if r.next != nil {
		r.next.Mutation(op, outcome)
	}
}

func (r *StatusRecorder) Annotations(n int) {
	r.mu.Lock()
	r.count = n
	r.mu.Unlock()
	if r.next != nil {
		r.next.Annotations(n)
	}
}

func (r *StatusRecorder) Last() (op, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.op, r.outcome
}

func (r *StatusRecorder) View() string {
	op, outcome := r.Last()
	r.mu.Lock()
	count := r.count
	r.mu.Unlock()
	if op == "" {
		return statusStyle.Render(fmt.Sprintf("%d annotations", count))
	}
	msg := fmt.Sprintf("%s: %s · %d annotations", op, outcome, count)
	switch outcome {
	case "ok":
		return okStyle.Render(msg)
	case "delegate_failure", "error":
		return errorStyle.Render(msg)
	}
	return warnStyle.Render(msg)
}
