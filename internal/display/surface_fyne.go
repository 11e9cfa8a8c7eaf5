package display

import (
	"fmt"
	"image"
	_ "image/png" // Decode per-note asset files
	"os"
	"path/filepath"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// FyneSurface renders frames into a Fyne window. All widget work is
// marshalled onto the Fyne event loop with fyne.DoAndWait, so the run
// loop can drive it from its own goroutine.
type FyneSurface struct {
	app       fyne.App
	assetsDir string
	opts      Options
	scale     float32

	win      fyne.Window
	content  *fyne.Container
	overlays map[string]*canvas.Image

	closed atomic.Bool
}

// NewFyneSurface prepares a surface. assetsDir may hold an octave.png base
// image and held/<fullNote>.png overlays; anything missing is generated
// in-process.
func NewFyneSurface(app fyne.App, assetsDir string, opts Options, scale float32) *FyneSurface {
	if scale <= 0 {
		scale = 1
	}
	return &FyneSurface{
		app:       app,
		assetsDir: assetsDir,
		opts:      opts.withDefaults(),
		scale:     scale,
		overlays:  make(map[string]*canvas.Image),
	}
}

func (s *FyneSurface) octaveSize() (float32, float32) {
	return OctaveWidth * s.scale, OctaveHeight * s.scale
}

// Open builds the window: one base octave image per displayed octave, laid
// out left to right, with the close intercept recording user dismissal.
func (s *FyneSurface) Open() error {
	fyne.DoAndWait(func() {
		s.win = s.app.NewWindow("Piano Display")
		s.content = container.NewWithoutLayout()

		base := s.baseOctave()
		w, h := s.octaveSize()
		for i := 0; i < s.opts.NumOctaves; i++ {
			img := canvas.NewImageFromImage(base)
			img.FillMode = canvas.ImageFillStretch
			img.Resize(fyne.NewSize(w, h))
			img.Move(fyne.NewPos(float32(i)*w, 0))
			s.content.Add(img)
		}

		s.win.SetContent(s.content)
		s.win.Resize(fyne.NewSize(w*float32(s.opts.NumOctaves), h))
		s.win.SetFixedSize(true)
		s.win.SetCloseIntercept(func() {
			s.closed.Store(true)
			s.win.Close()
		})
		s.win.Show()
	})
	return nil
}

// Draw shows exactly the overlays in the frame and hides the rest. Octave
// offsets outside the displayed window are skipped.
func (s *FyneSurface) Draw(frame Frame) error {
	if s.closed.Load() {
		return fmt.Errorf("draw on closed window")
	}
	fyne.DoAndWait(func() {
		wanted := make(map[string]bool, len(frame.Overlays))
		w, h := s.octaveSize()

		for _, o := range frame.Overlays {
			if o.OctaveOffset < 0 || o.OctaveOffset >= s.opts.NumOctaves {
				continue
			}
			img, ok := s.overlays[o.FullNote]
			if !ok {
				img = canvas.NewImageFromImage(s.overlayFor(o.FullNote))
				img.FillMode = canvas.ImageFillStretch
				img.Resize(fyne.NewSize(w, h))
				img.Move(fyne.NewPos(float32(o.OctaveOffset)*w, 0))
				s.content.Add(img)
				s.overlays[o.FullNote] = img
			}
			img.Show()
			wanted[o.FullNote] = true
		}
		for fullNote, img := range s.overlays {
			if !wanted[fullNote] {
				img.Hide()
			}
		}
		s.content.Refresh()
	})
	return nil
}

// Closed reports whether the user dismissed the window.
func (s *FyneSurface) Closed() bool {
	return s.closed.Load()
}

// Close tears the window down. Idempotent, and safe before Open.
func (s *FyneSurface) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.win != nil {
		fyne.DoAndWait(func() {
			s.win.Close()
		})
	}
	return nil
}

// baseOctave loads assets/octave.png, falling back to the generated
// drawing.
func (s *FyneSurface) baseOctave() image.Image {
	if img := s.loadAsset("octave.png"); img != nil {
		return img
	}
	return octaveImage()
}

// overlayFor loads assets/held/<fullNote>.png, falling back to the
// generated highlight with a freetype label.
func (s *FyneSurface) overlayFor(fullNote string) image.Image {
	if img := s.loadAsset(filepath.Join("held", fullNote+".png")); img != nil {
		return img
	}
	return highlightImage(fullNote)
}

func (s *FyneSurface) loadAsset(rel string) image.Image {
	if s.assetsDir == "" {
		return nil
	}
	f, err := os.Open(filepath.Join(s.assetsDir, rel))
	if err != nil {
		return nil
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil
	}
	return img
}
