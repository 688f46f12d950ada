package media

import "image"

// boxScale downscales src to targetW preserving aspect ratio, using a
// box average so the result is deterministic across platforms.
func boxScale(src image.Image, targetW int) image.Image {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw <= targetW || sw == 0 || sh == 0 {
		return src
	}
	targetH := sh * targetW / sw
	if targetH < 1 {
		targetH = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, targetW, targetH))
	for y := 0; y < targetH; y++ {
		sy0 := y * sh / targetH
		sy1 := (y + 1) * sh / targetH
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		for x := 0; x < targetW; x++ {
			sx0 := x * sw / targetW
			sx1 := (x + 1) * sw / targetW
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			var r, g, b, a, n uint64
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					pr, pg, pb, pa := src.At(sb.Min.X+sx, sb.Min.Y+sy).RGBA()
					r += uint64(pr)
					g += uint64(pg)
					b += uint64(pb)
					a += uint64(pa)
					n++
				}
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = uint8(r / n >> 8)
			dst.Pix[i+1] = uint8(g / n >> 8)
			dst.Pix[i+2] = uint8(b / n >> 8)
			dst.Pix[i+3] = uint8(a / n >> 8)
		}
	}
	return dst
}
