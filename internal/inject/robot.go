package inject

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Robot is the production Sink, backed by robotgo.
type Robot struct{}

// NewRobot returns a Sink that drives the host keyboard and mouse.
func NewRobot() *Robot {
	return &Robot{}
}

func (r *Robot) PressKey(code string) error {
	if err := robotgo.KeyDown(code); err != nil {
		return fmt.Errorf("press key %q: %w", code, err)
	}
	return nil
}

func (r *Robot) ReleaseKey(code string) error {
	if err := robotgo.KeyUp(code); err != nil {
		return fmt.Errorf("release key %q: %w", code, err)
	}
	return nil
}

func (r *Robot) PressMouseButton(button string) error {
	if err := robotgo.Toggle(normalizeButton(button), "down"); err != nil {
		return fmt.Errorf("press mouse %q: %w", button, err)
	}
	return nil
}

func (r *Robot) ReleaseMouseButton(button string) error {
	if err := robotgo.Toggle(normalizeButton(button), "up"); err != nil {
		return fmt.Errorf("release mouse %q: %w", button, err)
	}
	return nil
}

func (r *Robot) MoveCursor(dx, dy int) error {
	robotgo.MoveRelative(dx, dy)
	return nil
}

// normalizeButton maps the config vocabulary onto robotgo's button names.
func normalizeButton(button string) string {
	if button == "middle" {
		return "center"
	}
	return button
}
