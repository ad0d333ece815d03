package scene

import "sync"

// Scene is the append only list of renderables shown by the viewer. It can
// be read and appended to from any goroutine.
type Scene struct {
	mu          sync.RWMutex
	renderables []*Renderable
}

func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) Add(r *Renderable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderables = append(s.renderables, r)
}

// Copy of the current renderables list
func (s *Scene) Renderables() []*Renderable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Renderable, len(s.renderables))
	copy(out, s.renderables)
	return out
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.renderables)
}

// Total number of points in the scene
func (s *Scene) NumberOfPoints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.renderables {
		n += r.Len()
	}
	return n
}
