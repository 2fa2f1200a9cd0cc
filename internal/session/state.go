package session

import (
	"errors"
	"sync"
	"time"

	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/render"
)

// ErrBusy is returned when a plan request is already running for the client.
var ErrBusy = errors.New("a diet plan is already being generated")

// State is everything one client sees on the page. Each successful plan
// request overwrites the current plan; nothing else touches it.
type State struct {
	mu sync.Mutex

	clientID     string
	profile      diet.UserProfile
	plan         *diet.Plan
	charts       render.ChartSet
	theme        render.Theme
	view         render.View
	busy         bool
	chromeHidden bool
	toasts       []render.Toast
	canvas       *render.Canvas
	lastSeen     time.Time
}

func newState(clientID string) *State {
	return &State{
		clientID: clientID,
		theme:    render.DefaultTheme,
		view:     render.DefaultView,
		canvas:   render.NewCanvas(),
	}
}

func (s *State) ClientID() string {
	return s.clientID
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// idle reports whether the client has not been seen since cutoff. A client
// with a request in flight is never idle.
func (s *State) idle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy && s.lastSeen.Before(cutoff)
}

// BeginRequest marks the client busy. It fails if a request is in flight.
// Callers must defer EndRequest after a nil error.
func (s *State) BeginRequest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *State) EndRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SetProfile remembers the last submitted form values for redisplay.
func (s *State) SetProfile(p diet.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// SetPlan replaces the current plan and redraws both charts.
func (s *State) SetPlan(plan *diet.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan
	s.charts = render.BuildCharts(plan, s.theme)
	s.canvas.DrawSet(s.charts)
}

// Plan returns the current plan, or nil before the first success.
func (s *State) Plan() *diet.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

func (s *State) Charts() render.ChartSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.charts
}

// SetTheme changes the theme and, when a plan is shown, restyles and redraws
// its charts from the retained series.
func (s *State) SetTheme(theme render.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	if s.plan == nil {
		return
	}
	s.charts = s.charts.Retheme(theme)
	s.canvas.DrawSet(s.charts)
}

func (s *State) Theme() render.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetView switches the active meal view.
func (s *State) SetView(v render.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

func (s *State) View() render.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// HideChrome hides the download button and the view selector. The returned
// func restores them and is meant to be deferred.
func (s *State) HideChrome() (restore func()) {
	s.mu.Lock()
	s.chromeHidden = true
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.chromeHidden = false
	}
}

func (s *State) ChromeHidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chromeHidden
}

// Notify queues a toast for the next page render.
func (s *State) Notify(level render.ToastLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, render.Toast{Level: level, Message: message})
}

// Canvas is the chart registry of the client.
func (s *State) Canvas() *render.Canvas {
	return s.canvas
}

// Snapshot captures the page state and takes the queued toasts.
func (s *State) Snapshot(apiKey string) render.PageState {
	s.mu.Lock()
	defer s.mu.Unlock()

	toasts := s.toasts
	s.toasts = nil

	return render.PageState{
		Profile:      s.profile,
		APIKey:       apiKey,
		Theme:        s.theme,
		View:         s.view,
		Plan:         s.plan,
		Charts:       s.charts,
		Busy:         s.busy,
		ChromeHidden: s.chromeHidden,
		Toasts:       toasts,
	}
}
