// Package window opens the desktop window the renderer presents into and paces the render loop on it.
package window

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

// ErrNotOpen is returned when an operation needs a window that was never opened or is already closed.
var ErrNotOpen = errors.New("window: not open")

// Window is a fixed-size, non-resizable desktop window. It also acts as the render loop's refresh source: each
// WaitRefresh pumps pending events and reports whether the window is still open. Vertical sync comes from the
// surface's FIFO present mode, so the frame callback blocks on present and WaitRefresh never sleeps.
//
// A Window must be created and used on the main goroutine.
type Window interface {
	// SetKeyDownCallback sets the callback for key press and repeat events. Escape always closes the window and is
	// not forwarded.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns a platform-appropriate descriptor for creating a WebGPU surface on the window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// WaitRefresh processes pending window events.
	//
	// Returns:
	//   - bool: false once the window has been closed
	WaitRefresh() bool

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// Width returns the framebuffer width in device pixels.
	Width() int

	// Height returns the framebuffer height in device pixels.
	Height() int

	// Close destroys the window.
	//
	// Returns:
	//   - error: ErrNotOpen if the window is not open
	Close() error
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title  string
	width  int
	height int
	logger *log.Entry

	// internalWindow holds the platform window (glfwWindow).
	internalWindow any

	onKeyDown func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow opens a window with the given options. The framebuffer may be larger than the requested size on
// high-DPI displays; Width and Height report device pixels.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:  "oxy-sss",
		width:  1280,
		height: 720,
		logger: log.WithField("component", "window"),
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	w.logger.WithFields(log.Fields{
		"title":  w.title,
		"width":  w.width,
		"height": w.height,
	}).Info("window opened")
	return w, nil
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) WaitRefresh() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) Close() error {
	if err := platformCloseWindow(w); err != nil {
		return err
	}
	w.logger.Info("window closed")
	return nil
}
