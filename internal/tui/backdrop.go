package tui

import (
	"context"
	"sync"

	"github.com/jask/annotator/internal/geom"
)

// Backdrop is the visualization the annotations are drawn over: a dotted
// grid filling the canvas. It becomes ready once the terminal size is known.
type Backdrop struct {
	canvas *Canvas

	mu        sync.Mutex
	want      geom.Size
	spacing   geom.Size
	ready     chan struct{}
	readyOnce sync.Once
}

func NewBackdrop(c *Canvas) *Backdrop {
	return &Backdrop{canvas: c, spacing: geom.Size{W: 4, H: 2}, ready: make(chan struct{})}
}

// SetWindow records the space available to the canvas. The first non-empty
// size opens the readiness gate.
func (b *Backdrop) SetWindow(w, h int) {
	b.mu.Lock()
	b.want = geom.Size{W: w, H: h}
	b.mu.Unlock()
	if w > 0 && h > 0 {
		b.readyOnce.Do(func() { close(b.ready) })
	}
}

// AdjustSize resizes the canvas to the recorded window. A resize drops the
// grid, so Draw must follow.
func (b *Backdrop) AdjustSize() {
	b.mu.Lock()
	want := b.want
	b.mu.Unlock()
	if b.canvas.Size() != want {
		b.canvas.Resize(want.W, want.H)
	}
}

func (b *Backdrop) Draw() {
	b.mu.Lock()
	sp := b.spacing
	b.mu.Unlock()
	b.canvas.Fill(func(x, y int) rune {
		if x%sp.W == 0 && y%sp.H == 0 {
			return '·'
		}
		return ' '
	})
}

func (b *Backdrop) WaitUntilReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backdrop) Size() geom.Size { return b.canvas.Size() }
