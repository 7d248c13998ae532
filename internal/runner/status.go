package runner

import (
	"image"
	"sync"
)

// Status is the externally observable state of the current or last cycle:
// one status line plus the last result image. The running cycle is the only
// writer (the controller enforces at most one cycle); the display layer
// reads concurrently.
type Status struct {
	mu         sync.RWMutex
	text       string
	resultImg  image.Image
	resultName string
	onChange   func(string)
}

// NewStatus returns an idle Status.
func NewStatus() *Status {
	return &Status{text: "Idle."}
}

// OnChange installs a hook invoked after every status text change. Install
// before any cycle starts; the hook runs outside the lock.
func (s *Status) OnChange(fn func(string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Set replaces the status text.
func (s *Status) Set(text string) {
	s.mu.Lock()
	s.text = text
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

// Text returns the current status text.
func (s *Status) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// SetResult records the last successfully decoded result.
func (s *Status) SetResult(img image.Image, name string) {
	s.mu.Lock()
	s.resultImg = img
	s.resultName = name
	s.mu.Unlock()
}

// Result returns the last result image and its server-side filename. The
// image is nil until a cycle completes successfully.
func (s *Status) Result() (image.Image, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resultImg, s.resultName
}
