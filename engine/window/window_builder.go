package window

import log "github.com/sirupsen/logrus"

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested client area size in screen coordinates. Non-positive values keep the defaults.
//
// Parameters:
//   - width: client width
//   - height: client height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 {
			w.width = width
		}
		if height > 0 {
			w.height = height
		}
	}
}

// WithLogger sets the log entry window lifecycle events are written to.
func WithLogger(entry *log.Entry) WindowBuilderOption {
	return func(w *engineWindow) {
		if entry != nil {
			w.logger = entry
		}
	}
}
