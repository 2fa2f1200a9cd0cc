package render

import (
	"sync"
	"sync/atomic"
)

// Canvas element ids used by the page.
const (
	MacroCanvasID = "macroChart"
	MealCanvasID  = "mealChart"
)

// Drawn is a chart bound to a canvas.
type Drawn struct {
	ID       int64
	CanvasID string
	Chart    Chart

	released atomic.Bool
}

// Released reports whether the chart has been torn down.
func (d *Drawn) Released() bool {
	return d.released.Load()
}

// Canvas tracks which chart instance is bound to each canvas. A canvas holds
// at most one live chart.
type Canvas struct {
	mu       sync.Mutex
	bound    map[string]*Drawn
	nextID   int64
	releases int
}

func NewCanvas() *Canvas {
	return &Canvas{bound: make(map[string]*Drawn)}
}

// Draw releases whatever is bound to canvasID and binds chart in its place.
func (c *Canvas) Draw(canvasID string, chart Chart) *Drawn {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked(canvasID)
	c.nextID++
	d := &Drawn{ID: c.nextID, CanvasID: canvasID, Chart: chart}
	c.bound[canvasID] = d
	return d
}

// DrawSet draws both charts of set onto the page canvases.
func (c *Canvas) DrawSet(set ChartSet) (macro, meals *Drawn) {
	return c.Draw(MacroCanvasID, set.Macro), c.Draw(MealCanvasID, set.Meals)
}

// Release tears down the chart bound to canvasID, if any.
func (c *Canvas) Release(canvasID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(canvasID)
}

func (c *Canvas) releaseLocked(canvasID string) {
	d, ok := c.bound[canvasID]
	if !ok {
		return
	}
	d.released.Store(true)
	delete(c.bound, canvasID)
	c.releases++
}

// Bound returns the live chart on canvasID.
func (c *Canvas) Bound(canvasID string) (*Drawn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.bound[canvasID]
	return d, ok
}

// Live is the number of charts currently bound.
func (c *Canvas) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bound)
}

// Releases is the number of charts torn down so far.
func (c *Canvas) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}
