package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

const iconSize = 22

var (
	iconMu    sync.Mutex
	iconCache = map[color.RGBA][]byte{}
)

var (
	colorActive = color.RGBA{R: 0x2e, G: 0xa0, B: 0x43, A: 0xff}
	colorHeld   = color.RGBA{R: 0xd9, G: 0x8e, B: 0x04, A: 0xff}
	colorQuiet  = color.RGBA{R: 0x6e, G: 0x76, B: 0x81, A: 0xff}
)

// icon draws a filled eye-shaped dot in c and returns it PNG-encoded.
func icon(c color.RGBA) []byte {
	iconMu.Lock()
	defer iconMu.Unlock()
	if b, ok := iconCache[c]; ok {
		return b
	}

	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	const mid = iconSize / 2
	const outer = mid - 1
	const pupil = 3
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := x-mid, y-mid
			d2 := dx*dx + dy*dy
			switch {
			case d2 <= pupil*pupil:
				img.SetRGBA(x, y, color.RGBA{A: 0xff})
			case d2 <= outer*outer:
				img.SetRGBA(x, y, c)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	iconCache[c] = buf.Bytes()
	return iconCache[c]
}
