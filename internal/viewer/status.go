package viewer

import (
	"fmt"
	"sync"

	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/ecopia-map/plyviewer/internal/loader"
	"github.com/ecopia-map/plyviewer/internal/scene"
)

type State int

const (
	StateLoading State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return ""
}

// Status tracks the load of the point cloud shown by a viewer, it is
// updated from the load goroutine and read by the render loop
type Status struct {
	mu       sync.Mutex
	source   string
	state    State
	progress float64
	points   int
	err      error
}

func NewStatus(source string) *Status {
	return &Status{source: source}
}

func (s *Status) SetProgress(ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoading && ratio > s.progress {
		s.progress = ratio
	}
}

func (s *Status) SetLoaded(points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateLoaded
	s.progress = 1
	s.points = points
}

func (s *Status) SetFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.err = err
}

func (s *Status) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Status) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// One line description of the load, shown over the rendered frame
func (s *Status) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateLoaded:
		return fmt.Sprintf("%s: %d points", s.source, s.points)
	case StateFailed:
		return fmt.Sprintf("%s: %v", s.source, s.err)
	}
	if s.progress > 0 {
		return fmt.Sprintf("loading %s %s%%", s.source, loader.FormatPercent(s.progress))
	}
	return fmt.Sprintf("loading %s", s.source)
}

// Load callbacks adding the decoded cloud to v and keeping the status up to
// date
func (s *Status) Callbacks(v *scene.Viewer) loader.Callbacks {
	return loader.Callbacks{
		OnProgress: s.SetProgress,
		OnSuccess: func(pc *data.PointCloud) {
			if _, _, err := v.AddPointCloud(s.source, pc); err != nil {
				s.SetFailed(err)
				return
			}
			s.SetLoaded(pc.Len())
		},
		OnFailure: func(err *loader.LoadError) {
			s.SetFailed(err)
		},
	}
}
