package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/cockroachdb/errors"
	xdraw "golang.org/x/image/draw"
)

const backgroundAlpha = 51 // ~20%, the backdrop stays decorative

// compose lays the transparent-canvas chart over the dark theme fill and,
// when one is available, a faded decorative background.
func (c *Chart) compose(chartPNG []byte) ([]byte, error) {
	overlay, err := png.Decode(bytes.NewReader(chartPNG))
	if err != nil {
		return nil, errors.Wrap(err, "decode chart")
	}

	bounds := overlay.Bounds()
	base := image.NewRGBA(bounds)
	draw.Draw(base, bounds, image.NewUniform(color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}), image.Point{}, draw.Src)

	if path := c.pickBackground(); path != "" {
		if bg, err := loadImage(path); err == nil {
			scaled := image.NewRGBA(bounds)
			xdraw.CatmullRom.Scale(scaled, bounds, bg, bg.Bounds(), xdraw.Over, nil)
			mask := image.NewUniform(color.Alpha{A: backgroundAlpha})
			draw.DrawMask(base, bounds, scaled, image.Point{}, mask, image.Point{}, draw.Over)
		}
	}

	draw.Draw(base, bounds, overlay, bounds.Min, draw.Over)

	var out bytes.Buffer
	if err := png.Encode(&out, base); err != nil {
		return nil, errors.Wrap(err, "encode chart")
	}
	return out.Bytes(), nil
}

// pickBackground chooses one existing file from the pool, or "" when the pool
// is empty or nothing on disk matches.
func (c *Chart) pickBackground() string {
	available := make([]string, 0, len(c.backgrounds))
	for _, path := range c.backgrounds {
		if _, err := os.Stat(path); err == nil {
			available = append(available, path)
		}
	}
	if len(available) == 0 {
		return ""
	}
	return available[c.pick(len(available))]
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
