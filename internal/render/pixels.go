package render

import (
	"hash/fnv"
	"image/color"
)

// fillPaletteRGBA converts cell values into RGBA pixels using a palette. When
// the palette is empty the buffer is cleared to transparent black.
func fillPaletteRGBA(buf []byte, cells []uint8, palette []color.RGBA) {
	if len(palette) == 0 {
		clear(buf[:4*len(cells)])
		return
	}

	last := len(palette) - 1
	for i, c := range cells {
		idx := int(c)
		if idx > last {
			idx = last
		}
		setPixel(buf, i, palette[idx])
	}
}

// fillRampRGBA converts values in [0,1] into RGBA pixels by interpolating
// between ramp stops. Values outside the range clamp to the end stops.
func fillRampRGBA(buf []byte, values []float64, ramp []Stop) {
	for i, v := range values {
		setPixel(buf, i, rampAt(ramp, v))
	}
}

func setPixel(buf []byte, i int, c color.RGBA) {
	base := i * 4
	buf[base+0] = c.R
	buf[base+1] = c.G
	buf[base+2] = c.B
	buf[base+3] = c.A
}

// Stop is one colour stop on a height ramp.
type Stop struct {
	At    float64
	Color color.RGBA
}

func rampAt(ramp []Stop, v float64) color.RGBA {
	if len(ramp) == 0 {
		return color.RGBA{}
	}
	if v <= ramp[0].At {
		return ramp[0].Color
	}
	for i := 1; i < len(ramp); i++ {
		if v <= ramp[i].At {
			a, b := ramp[i-1], ramp[i]
			t := (v - a.At) / (b.At - a.At)
			return lerp(a.Color, b.Color, t)
		}
	}
	return ramp[len(ramp)-1].Color
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func shade(c color.RGBA, f float64) color.RGBA {
	return lerp(color.RGBA{A: c.A}, c, f)
}

// hashColor derives a stable, mid-bright colour from a key.
func hashColor(key string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(key))
	v := h.Sum32()
	return color.RGBA{R: 64 + uint8(v)%160, G: 64 + uint8(v>>8)%160, B: 64 + uint8(v>>16)%160, A: 255}
}

// indexColor spreads consecutive integers across distinct colours.
func indexColor(i int) color.RGBA {
	v := uint32(i) * 2654435761
	return color.RGBA{R: 48 + uint8(v>>24)%192, G: 48 + uint8(v>>16)%192, B: 48 + uint8(v>>8)%192, A: 255}
}
