package flicker

// Group is a set of engines ticked from one frame driver. Engines in a group
// never share phase state.
type Group struct {
	name    string
	engines []*Engine
}

// NewGroup creates a group over the given engines.
func NewGroup(name string, engines ...*Engine) *Group {
	return &Group{name: name, engines: engines}
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Engines returns the engines in the group.
func (g *Group) Engines() []*Engine { return g.engines }

// SetRefreshRate seeds every engine with the measured refresh rate.
func (g *Group) SetRefreshRate(hz float64) {
	for _, e := range g.engines {
		e.SetRefreshRate(hz)
	}
}

// Stop stops every engine and returns the ones that were running.
func (g *Group) Stop() []*Engine {
	var stopped []*Engine
	for _, e := range g.engines {
		if e.Running() {
			stopped = append(stopped, e)
		}
		e.Stop()
	}
	return stopped
}

// Running reports whether any engine is running.
func (g *Group) Running() bool {
	for _, e := range g.engines {
		if e.Running() {
			return true
		}
	}
	return false
}

// Tick advances every running engine by one frame and returns their frames.
// Stopped engines are skipped.
func (g *Group) Tick() []Frame {
	var frames []Frame
	for _, e := range g.engines {
		if !e.Running() {
			continue
		}
		frames = append(frames, e.Tick())
	}
	return frames
}
