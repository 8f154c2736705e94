package hal

func rgb565(r, g, b uint8) uint16 {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

// RGB888From565 expands a little-endian RGB565 pixel.
func RGB888From565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

// fillRect565 writes pixel into the clipped rectangle of an RGB565 buffer.
func fillRect565(buf []byte, stride, width, height, x, y, w, h int, pixel uint16) {
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if x+w > width {
		w = width - x
	}
	if y+h > height {
		h = height - y
	}
	if w <= 0 || h <= 0 {
		return
	}

	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for row := y; row < y+h; row++ {
		off := row*stride + x*2
		for i := 0; i < w; i++ {
			buf[off] = lo
			buf[off+1] = hi
			off += 2
		}
	}
}
