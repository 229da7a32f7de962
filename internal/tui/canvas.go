package tui

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/style"
)

// dashScale converts style dash lengths (pixels) into cells.
const dashScale = 5

type cell struct {
	r     rune
	color string
}

// Canvas is a cell grid implementing shape.Surface. Annotation strokes sit on
// top of a backdrop layer owned by the visualizer. It is safe for concurrent
// use since the first frame is drawn off the UI goroutine.
type Canvas struct {
	mu       sync.Mutex
	w, h     int
	strokes  []cell
	backdrop []rune
	mapper   geom.Mapper
}

func NewCanvas() *Canvas {
	return &Canvas{mapper: geom.LinearMapper{}}
}

func (c *Canvas) Size() geom.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return geom.Size{W: c.w, H: c.h}
}

// Resize drops both layers.
func (c *Canvas) Resize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c.w, c.h = w, h
	c.strokes = make([]cell, w*h)
	c.backdrop = make([]rune, w*h)
}

// Clear wipes the stroke layer.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.strokes)
}

// Line rasterizes the normalized segment a-b.
func (c *Canvas) Line(a, b geom.Point, s style.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == 0 || c.h == 0 {
		return
	}
	size := geom.Size{W: c.w, H: c.h}
	x0, y0 := c.toCell(c.mapper.CoordsToPixel(size, a))
	x1, y1 := c.toCell(c.mapper.CoordsToPixel(size, b))
	r := strokeRune(s.LineWidth)
	var dash []int
	if s.Dashed() {
		dash = dashCells(s.LineDash)
	}

	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for step := 0; ; step++ {
		if on(dash, step) {
			c.strokes[y0*c.w+x0] = cell{r: r, color: s.StrokeColor}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Fill sets the backdrop layer from fn.
func (c *Canvas) Fill(fn func(x, y int) rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			c.backdrop[y*c.w+x] = fn(x, y)
		}
	}
}

// At returns the visible rune of a cell, for tests and hit feedback.
func (c *Canvas) At(x, y int) rune {
	c.mu.Lock()
	defer c.mu.Unlock()
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return 0
	}
	if s := c.strokes[y*c.w+x]; s.r != 0 {
		return s.r
	}
	return c.backdrop[y*c.w+x]
}

// Render returns the grid as styled lines, consecutive cells of one colour
// batched into a single lipgloss render.
func (c *Canvas) Render() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]string, c.h)
	styles := map[string]lipgloss.Style{}
	for y := 0; y < c.h; y++ {
		var (
			b       strings.Builder
			run     []rune
			runKey  string
			flushFn = func() {
				if len(run) == 0 {
					return
				}
				st, ok := styles[runKey]
				if !ok {
					if runKey == "" {
						st = backdropStyle
					} else {
						st = lipgloss.NewStyle().Foreground(strokeColor(strings.TrimPrefix(runKey, "fg:")))
					}
					styles[runKey] = st
				}
				b.WriteString(st.Render(string(run)))
				run = run[:0]
			}
		)
		for x := 0; x < c.w; x++ {
			i := y*c.w + x
			r, key := c.backdrop[i], ""
			if s := c.strokes[i]; s.r != 0 {
				r, key = s.r, "fg:"+s.color
			}
			if r == 0 {
				r = ' '
			}
			if key != runKey {
				flushFn()
				runKey = key
			}
			run = append(run, r)
		}
		flushFn()
		lines[y] = b.String()
	}
	return lines
}

func (c *Canvas) toCell(p geom.Point) (int, int) {
	x := int(math.Floor(p.X))
	y := int(math.Floor(p.Y))
	return clampInt(x, 0, c.w-1), clampInt(y, 0, c.h-1)
}

func strokeRune(width int) rune {
	switch {
	case width >= 6:
		return '█'
	case width >= 4:
		return '▓'
	case width >= 2:
		return '•'
	}
	return '·'
}

func dashCells(dash []int) []int {
	out := make([]int, len(dash))
	for i, d := range dash {
		out[i] = max(1, (d+dashScale-1)/dashScale)
	}
	return out
}

// on reports whether step falls in a drawn segment of the dash pattern.
func on(dash []int, step int) bool {
	if len(dash) == 0 {
		return true
	}
	period := 0
	for _, d := range dash {
		period += d
	}
	pos := step % period
	for i, d := range dash {
		if pos < d {
			return i%2 == 0
		}
		pos -= d
	}
	return true
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
