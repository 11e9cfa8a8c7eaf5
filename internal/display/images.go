package display

import (
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync"

	"fyne.io/fyne/v2/theme"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"

	"github.com/benkraft/piano-typer/internal/keystroke"
)

// Octave geometry in unscaled pixels: seven white keys of equal width,
// black keys straddling the gaps after C, D, F, G and A.
const (
	whiteKeyWidth = 24
	OctaveWidth   = 7 * whiteKeyWidth
	OctaveHeight  = 96
	blackKeyWidth = 14
	blackKeyDepth = 56
)

// whiteIndex maps natural notes to their position within the octave.
var whiteIndex = map[string]int{"C": 0, "D": 1, "E": 2, "F": 3, "G": 4, "A": 5, "B": 6}

// keyRect returns the bounds of a note's key within one octave image, and
// whether it is a black key. Sharp notes sit between the surrounding white
// keys.
func keyRect(note string) (image.Rectangle, bool) {
	if idx, ok := whiteIndex[note]; ok {
		return image.Rect(idx*whiteKeyWidth, 0, (idx+1)*whiteKeyWidth, OctaveHeight), false
	}
	// Sharps: centered on the boundary to the right of their natural.
	idx := whiteIndex[note[:1]]
	center := (idx + 1) * whiteKeyWidth
	return image.Rect(center-blackKeyWidth/2, 0, center+blackKeyWidth/2, blackKeyDepth), true
}

// octaveImage draws one unlit octave: white keys with thin borders and the
// black keys on top.
func octaveImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, OctaveWidth, OctaveHeight))

	white := color.RGBA{250, 250, 250, 255}
	border := color.RGBA{40, 40, 40, 255}
	black := color.RGBA{25, 25, 25, 255}

	draw.Draw(img, img.Bounds(), image.NewUniform(border), image.Point{}, draw.Src)
	for i := 0; i < 7; i++ {
		r := image.Rect(i*whiteKeyWidth+1, 1, (i+1)*whiteKeyWidth-1, OctaveHeight-1)
		draw.Draw(img, r, image.NewUniform(white), image.Point{}, draw.Src)
	}
	for _, note := range keystroke.Names[:] {
		if r, isBlack := keyRect(note); isBlack {
			draw.Draw(img, r, image.NewUniform(black), image.Point{}, draw.Src)
		}
	}
	return img
}

// highlightImage draws a transparent octave-sized overlay with a single
// key lit and labelled. Used when no per-note asset file exists.
func highlightImage(fullNote string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, OctaveWidth, OctaveHeight))

	k, err := keystroke.ParseFullNote(fullNote)
	if err != nil {
		return img
	}
	rect, isBlack := keyRect(k.Note)

	lit := color.RGBA{255, 170, 40, 255}
	if isBlack {
		lit = color.RGBA{210, 120, 20, 255}
	}
	inset := rect.Inset(1)
	draw.Draw(img, inset, image.NewUniform(lit), image.Point{}, draw.Src)

	if label := noteLabel(fullNote); label != nil {
		// Bottom-center the rotated label on the key.
		lb := label.Bounds()
		x := rect.Min.X + (rect.Dx()-lb.Dx())/2
		y := rect.Max.Y - lb.Dy() - 4
		draw.Draw(img, image.Rect(x, y, x+lb.Dx(), y+lb.Dy()), label, lb.Min, draw.Over)
	}
	return img
}

var (
	labelFontOnce sync.Once
	labelFont     *truetype.Font
)

// noteLabel renders the full note name with freetype using the theme font,
// rotated 90 degrees counter-clockwise so it runs up the key. Returns nil
// when the font is unusable.
func noteLabel(text string) *image.RGBA {
	labelFontOnce.Do(func() {
		f, err := freetype.ParseFont(theme.DefaultTextFont().Content())
		if err != nil {
			log.Printf("Failed to parse theme font: %v", err)
			return
		}
		labelFont = f
	})
	if labelFont == nil {
		return nil
	}

	fontSize := float64(10)
	dpi := float64(72)

	opts := truetype.Options{Size: fontSize, DPI: dpi}
	face := truetype.NewFace(labelFont, &opts)
	defer face.Close()

	textWidth := 0
	for _, r := range text {
		if adv, ok := face.GlyphAdvance(r); ok {
			textWidth += adv.Round()
		}
	}
	metrics := face.Metrics()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	ascent := metrics.Ascent.Ceil()

	padding := 1
	w := textWidth + padding*2
	h := textHeight + padding*2
	src := image.NewRGBA(image.Rect(0, 0, w, h))

	c := freetype.NewContext()
	c.SetFont(labelFont)
	c.SetFontSize(fontSize)
	c.SetDPI(dpi)
	c.SetClip(src.Bounds())
	c.SetDst(src)
	c.SetSrc(image.NewUniform(color.RGBA{20, 20, 20, 255}))
	if _, err := c.DrawString(text, freetype.Pt(padding, padding+ascent)); err != nil {
		log.Printf("Failed to draw label %q: %v", text, err)
		return nil
	}

	// Rotate CCW: (x, y) -> (y, w-1-x).
	rotated := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rotated.Set(y, w-1-x, src.At(x, y))
		}
	}
	return rotated
}
