package tray

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderBadge draws a filled dot with text in the top-right corner of a
// PNG icon and returns the new PNG.
func RenderBadge(icon []byte, text string, fill color.Color) ([]byte, error) {
	base, err := png.Decode(bytes.NewReader(icon))
	if err != nil {
		return nil, fmt.Errorf("decode icon: %w", err)
	}
	bounds := base.Bounds()
	canvas := image.NewNRGBA(bounds)
	draw.Draw(canvas, bounds, base, bounds.Min, draw.Src)

	size := bounds.Dx()
	if bounds.Dy() < size {
		size = bounds.Dy()
	}
	radius := size * 3 / 10
	if radius < 7 {
		radius = 7
	}
	centre := image.Pt(bounds.Max.X-radius, bounds.Min.Y+radius)
	fillCircle(canvas, centre, radius, fill)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.White), Face: face}
	width := drawer.MeasureString(text)
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(centre.X) - width/2,
		Y: fixed.I(centre.Y) + (face.Metrics().Ascent-face.Metrics().Descent)/2,
	}
	drawer.DrawString(text)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("encode badge: %w", err)
	}
	return out.Bytes(), nil
}

func fillCircle(dst draw.Image, centre image.Point, radius int, fill color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				dst.Set(centre.X+x, centre.Y+y, fill)
			}
		}
	}
}

// ParseColor reads #RGB or #RRGGBB.
func ParseColor(value string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("parse colour %q: want #RRGGBB", value)
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse colour %q: %w", value, err)
	}
	return color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}, nil
}
