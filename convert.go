package blit

// Channel-count conversions used to emulate 3-channel operation on
// engines that only accept 4-channel surfaces. The pipeline decides when
// to convert; the conversions themselves are plain interleaved-byte
// rewrites.

// expandChannels converts a 3-channel image into a 4-channel buffer,
// filling the fourth channel with 0xFF.
func expandChannels(dst []byte, dstStride int, src []byte, srcStride, width, height int) {
	for y := 0; y < height; y++ {
		d := dst[y*dstStride:]
		s := src[y*srcStride:]
		for x := 0; x < width; x++ {
			di, si := x*4, x*3
			d[di+0] = s[si+0]
			d[di+1] = s[si+1]
			d[di+2] = s[si+2]
			d[di+3] = 0xFF
		}
	}
}

// contractChannels converts a 4-channel image into a 3-channel buffer,
// dropping the fourth channel.
func contractChannels(dst []byte, dstStride int, src []byte, srcStride, width, height int) {
	for y := 0; y < height; y++ {
		d := dst[y*dstStride:]
		s := src[y*srcStride:]
		for x := 0; x < width; x++ {
			di, si := x*3, x*4
			d[di+0] = s[si+0]
			d[di+1] = s[si+1]
			d[di+2] = s[si+2]
		}
	}
}

// copyRows copies height rows of rowBytes each between buffers with
// independent strides.
func copyRows(dst []byte, dstStride int, src []byte, srcStride, rowBytes, height int) {
	for y := 0; y < height; y++ {
		copy(dst[y*dstStride:y*dstStride+rowBytes], src[y*srcStride:y*srcStride+rowBytes])
	}
}
