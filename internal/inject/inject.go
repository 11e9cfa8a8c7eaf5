// Package inject wraps the OS-level input emulation behind a small sink
// interface so the dispatch engine can be tested without touching the host
// input queue.
package inject

// Sink accepts emulated input commands. Implementations are assumed to
// deliver them to the host OS synchronously and in call order.
type Sink interface {
	PressKey(code string) error
	ReleaseKey(code string) error
	PressMouseButton(button string) error
	ReleaseMouseButton(button string) error
	MoveCursor(dx, dy int) error
}
