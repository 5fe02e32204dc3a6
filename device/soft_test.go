package device

import (
	"bytes"
	"errors"
	"testing"
)

func openSoft(t *testing.T, caps Capabilities) *SoftDevice {
	t.Helper()
	dev := NewSoftDevice(caps)
	if err := dev.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	return dev
}

// gridSurface allocates a w x h 4-channel surface and fills it with
// pixels [n n n 255] for n = 1, 2, ... in row-major order.
func gridSurface(t *testing.T, dev *SoftDevice, w, h int, rot Rotation) *Surface {
	t.Helper()
	buf, err := dev.Alloc(w*h*4, true)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	for i := 0; i < w*h; i++ {
		n := byte(i + 1)
		copy(buf.Pix[i*4:], []byte{n, n, n, 0xFF})
	}
	s, err := MakeSurface(buf, buf.Pix[:w*h*4], 4, w, h, w*4, rot)
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	return s
}

// blankSurface allocates a zeroed w x h 4-channel surface.
func blankSurface(t *testing.T, dev *SoftDevice, w, h int, rot Rotation) *Surface {
	t.Helper()
	buf, err := dev.Alloc(w*h*4, true)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	s, err := MakeSurface(buf, buf.Pix[:w*h*4], 4, w, h, w*4, rot)
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	return s
}

// pixels reads the surface rectangle back as the n-values written by
// gridSurface.
func pixels(s *Surface) []byte {
	w, h := s.RectWidth(), s.RectHeight()
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, s.Buf.Pix[((s.Top+y)*s.Stride+s.Left+x)*4])
		}
	}
	return out
}

func TestSoftDeviceAlloc(t *testing.T) {
	dev := openSoft(t, Capabilities{})

	b, err := dev.Alloc(100, true)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if b.Size() != softPageSize {
		t.Errorf("size %d, want page-rounded %d", b.Size(), softPageSize)
	}
	if !b.Cacheable {
		t.Error("cacheable attribute lost")
	}
	if b.Phys != uint64(b.Base()) {
		t.Error("phys handle does not match mapping base")
	}
	if dev.LiveBuffers() != 1 {
		t.Errorf("%d live buffers, want 1", dev.LiveBuffers())
	}

	if err := dev.Free(b); err != nil {
		t.Fatalf("free: %v", err)
	}
	if dev.LiveBuffers() != 0 {
		t.Errorf("%d live buffers after free", dev.LiveBuffers())
	}
	if err := dev.Free(b); err == nil {
		t.Error("double free succeeded")
	}

	if _, err := dev.Alloc(0, true); !errors.Is(err, ErrAllocFailed) {
		t.Errorf("zero-size alloc err=%v, want ErrAllocFailed", err)
	}
}

func TestSoftDeviceCacheOp(t *testing.T) {
	dev := openSoft(t, Capabilities{})
	b, err := dev.Alloc(softPageSize, true)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if err := dev.CacheOp(b, CacheClean); !errors.Is(err, ErrNotSupported) {
		t.Errorf("CacheOp err=%v, want ErrNotSupported", err)
	}
}

func TestSoftDeviceClosed(t *testing.T) {
	dev := NewSoftDevice(Capabilities{})
	in := gridSurface(t, dev, 2, 2, Rotation0)
	out := blankSurface(t, dev, 2, 2, Rotation0)

	if err := dev.Blit(in, out); !errors.Is(err, ErrClosed) {
		t.Errorf("blit on closed device err=%v, want ErrClosed", err)
	}
	if err := dev.Finish(); !errors.Is(err, ErrClosed) {
		t.Errorf("finish on closed device err=%v, want ErrClosed", err)
	}
	if err := dev.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("double close err=%v, want ErrClosed", err)
	}
}

func TestSoftDeviceBlitTransforms(t *testing.T) {
	// Source grid, 3 wide by 2 tall:
	//   1 2 3
	//   4 5 6
	tests := []struct {
		name   string
		inRot  Rotation
		outRot Rotation
		w, h   int // destination rectangle
		want   []byte
	}{
		{"copy", Rotation0, Rotation0, 3, 2, []byte{1, 2, 3, 4, 5, 6}},
		{"flip horizontal", FlipHorizontal, Rotation0, 3, 2, []byte{3, 2, 1, 6, 5, 4}},
		{"flip vertical", FlipVertical, Rotation0, 3, 2, []byte{4, 5, 6, 1, 2, 3}},
		{"rotate 90", Rotation0, Rotation90, 2, 3, []byte{4, 1, 5, 2, 6, 3}},
		{"rotate 180", Rotation0, Rotation180, 3, 2, []byte{6, 5, 4, 3, 2, 1}},
		{"rotate 270", Rotation0, Rotation270, 2, 3, []byte{3, 6, 2, 5, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := openSoft(t, Capabilities{})
			in := gridSurface(t, dev, 3, 2, tt.inRot)
			out := blankSurface(t, dev, tt.w, tt.h, tt.outRot)

			if err := dev.Blit(in, out); err != nil {
				t.Fatalf("blit: %v", err)
			}
			if err := dev.Finish(); err != nil {
				t.Fatalf("finish: %v", err)
			}
			if got := pixels(out); !bytes.Equal(got, tt.want) {
				t.Errorf("pixels = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSoftDeviceBlitScale(t *testing.T) {
	dev := openSoft(t, Capabilities{})

	// Solid color survives bilinear rescaling exactly.
	in := blankSurface(t, dev, 2, 2, Rotation0)
	for i := 0; i < 2*2; i++ {
		copy(in.Buf.Pix[i*4:], []byte{0x40, 0x80, 0xC0, 0xFF})
	}
	out := blankSurface(t, dev, 4, 4, Rotation0)

	if err := dev.Blit(in, out); err != nil {
		t.Fatalf("blit: %v", err)
	}
	for i := 0; i < 4*4; i++ {
		got := out.Buf.Pix[i*4 : i*4+4]
		if !bytes.Equal(got, []byte{0x40, 0x80, 0xC0, 0xFF}) {
			t.Fatalf("pixel %d = %v, want solid fill", i, got)
		}
	}
}

func TestSoftDeviceThreeChannel(t *testing.T) {
	makeRGB := func(t *testing.T, dev *SoftDevice, w, h int) *Surface {
		t.Helper()
		buf, err := dev.Alloc(w*h*3, true)
		if err != nil {
			t.Fatalf("alloc: %v", err)
		}
		s, err := MakeSurface(buf, buf.Pix[:w*h*3], 3, w, h, w*3, Rotation0)
		if err != nil {
			t.Fatalf("surface: %v", err)
		}
		return s
	}

	t.Run("rejected without capability", func(t *testing.T) {
		dev := openSoft(t, Capabilities{})
		in := makeRGB(t, dev, 2, 2)
		out := makeRGB(t, dev, 2, 2)
		if err := dev.Blit(in, out); !errors.Is(err, ErrNotSupported) {
			t.Errorf("blit err=%v, want ErrNotSupported", err)
		}
	})

	t.Run("copy with capability", func(t *testing.T) {
		dev := openSoft(t, Capabilities{ThreeChannel: true})
		in := makeRGB(t, dev, 2, 2)
		for i := 0; i < 2*2; i++ {
			n := byte(i + 1)
			copy(in.Buf.Pix[i*3:], []byte{n, n, n})
		}
		out := makeRGB(t, dev, 2, 2)
		if err := dev.Blit(in, out); err != nil {
			t.Fatalf("blit: %v", err)
		}
		if !bytes.Equal(out.Buf.Pix[:2*2*3], in.Buf.Pix[:2*2*3]) {
			t.Error("3-channel copy mismatch")
		}
	})
}

func TestSoftDeviceBlitSubRectangle(t *testing.T) {
	dev := openSoft(t, Capabilities{})

	// An 8x4 image with a 3x2 view starting at pixel (2, 1).
	const w, h, step = 8, 4, 8 * 4
	buf, err := dev.Alloc(w*h*4, true)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	for i := 0; i < w*h; i++ {
		buf.Pix[i*4] = byte(i)
	}
	view := buf.Pix[1*step+2*4:]
	in, err := MakeSurface(buf, view, 4, 3, 2, step, Rotation0)
	if err != nil {
		t.Fatalf("surface: %v", err)
	}

	out := blankSurface(t, dev, 3, 2, Rotation0)
	if err := dev.Blit(in, out); err != nil {
		t.Fatalf("blit: %v", err)
	}

	// Pixel (x, y) of the view is pixel (2+x, 1+y) of the image.
	want := []byte{10, 11, 12, 18, 19, 20}
	if got := pixels(out); !bytes.Equal(got, want) {
		t.Errorf("pixels = %v, want %v", got, want)
	}
}
