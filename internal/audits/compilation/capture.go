package compilation

import (
	"strings"
	"sync"
)

// Capture is a synchronized stderr buffer. Appends made outside the
// capturing window are discarded.
type Capture struct {
	mutex     sync.Mutex
	capturing bool
	builder   strings.Builder
}

// NewCapture constructs an inactive capture buffer.
func NewCapture() *Capture {
	return &Capture{}
}

// RegisterCapture opens the capturing window.
func (capture *Capture) RegisterCapture() {
	capture.mutex.Lock()
	defer capture.mutex.Unlock()
	capture.capturing = true
}

// UnregisterCapture closes the capturing window. Buffered content remains
// available to Contents.
func (capture *Capture) UnregisterCapture() {
	capture.mutex.Lock()
	defer capture.mutex.Unlock()
	capture.capturing = false
}

// Append stores the chunk when the capturing window is open. It is safe to
// call from multiple goroutines.
func (capture *Capture) Append(text string) {
	capture.mutex.Lock()
	defer capture.mutex.Unlock()
	if !capture.capturing {
		return
	}
	capture.builder.WriteString(text)
}

// Contents returns everything appended during capturing windows so far.
func (capture *Capture) Contents() string {
	capture.mutex.Lock()
	defer capture.mutex.Unlock()
	return capture.builder.String()
}
