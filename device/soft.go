package device

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// softPageSize mirrors the page-multiple rounding of contiguous memory
// allocators, so pool headroom behavior matches real drivers.
const softPageSize = 4096

// SoftDevice is a software emulation of a 2D-blit engine. Buffers are
// heap-backed, blits run on the CPU honoring surface rectangles and
// transform attributes, and cache maintenance reports ErrNotSupported as
// coherent engines do.
//
// SoftDevice is safe for concurrent use.
type SoftDevice struct {
	caps Capabilities

	mu   sync.Mutex
	open bool
	bufs map[*Buffer]struct{}
}

// NewSoftDevice creates a software blit engine with the given capability
// flags. Leave Capabilities zero to emulate an engine that only accepts
// 4-channel surfaces.
func NewSoftDevice(caps Capabilities) *SoftDevice {
	return &SoftDevice{
		caps: caps,
		bufs: make(map[*Buffer]struct{}),
	}
}

// Name returns "soft".
func (d *SoftDevice) Name() string { return "soft" }

// Open acquires the emulated device context.
func (d *SoftDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return nil
}

// Close releases the emulated device context.
func (d *SoftDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	d.open = false
	return nil
}

// Capabilities returns the configured feature flags.
func (d *SoftDevice) Capabilities() Capabilities { return d.caps }

// Alloc returns a heap-backed buffer rounded up to a page multiple.
func (d *SoftDevice) Alloc(size int, cacheable bool) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrAllocFailed, size)
	}
	rounded := (size + softPageSize - 1) / softPageSize * softPageSize
	b := &Buffer{
		Pix:       make([]byte, rounded),
		Cacheable: cacheable,
	}
	b.Phys = uint64(b.Base())

	d.mu.Lock()
	d.bufs[b] = struct{}{}
	d.mu.Unlock()
	return b, nil
}

// Free releases a buffer obtained from Alloc.
func (d *SoftDevice) Free(b *Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bufs[b]; !ok {
		return fmt.Errorf("device: free of unknown buffer %#x", b.Base())
	}
	delete(d.bufs, b)
	return nil
}

// LiveBuffers returns the number of outstanding allocations.
func (d *SoftDevice) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bufs)
}

// CacheOp reports ErrNotSupported: the emulated engine is coherent.
func (d *SoftDevice) CacheOp(b *Buffer, op CacheOp) error {
	return ErrNotSupported
}

// Finish is a no-op: SoftDevice blits complete synchronously.
func (d *SoftDevice) Finish() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrClosed
	}
	return nil
}

// Blit performs the transform on the CPU. The in surface may carry a flip
// attribute, the out surface a rotation; if the transformed source
// rectangle and the destination rectangle differ in size, the pixels are
// rescaled with a bilinear filter.
func (d *SoftDevice) Blit(in, out *Surface) error {
	d.mu.Lock()
	open := d.open
	d.mu.Unlock()
	if !open {
		return ErrClosed
	}
	if err := checkSurface(in, d.caps); err != nil {
		return err
	}
	if err := checkSurface(out, d.caps); err != nil {
		return err
	}

	// Work in 4 channels internally regardless of surface format.
	w, h := in.RectWidth(), in.RectHeight()
	src := extractRGBA(in)

	switch in.Rot {
	case FlipHorizontal:
		flipHorizontal(src, w, h)
	case FlipVertical:
		flipVertical(src, w, h)
	case Rotation0:
	default:
		return fmt.Errorf("device: unsupported source transform %v", in.Rot)
	}

	switch out.Rot {
	case Rotation90:
		src = rotate90(src, w, h)
		w, h = h, w
	case Rotation180:
		src = rotate180(src, w, h)
	case Rotation270:
		src = rotate270(src, w, h)
		w, h = h, w
	case Rotation0:
	default:
		return fmt.Errorf("device: unsupported destination transform %v", out.Rot)
	}

	dw, dh := out.RectWidth(), out.RectHeight()
	if w != dw || h != dh {
		src = rescale(src, w, h, dw, dh)
	}

	storeRGBA(out, src)
	return nil
}

func checkSurface(s *Surface, caps Capabilities) error {
	if s.Buf == nil {
		return fmt.Errorf("device: surface without buffer")
	}
	if s.Format == FormatRGB888 && !caps.ThreeChannel {
		return fmt.Errorf("%w: 3-channel surfaces", ErrNotSupported)
	}
	if s.RectWidth() <= 0 || s.RectHeight() <= 0 {
		return fmt.Errorf("device: empty surface rectangle")
	}
	ch := s.Format.Channels()
	last := (s.Bottom-1)*s.Stride*ch + s.Right*ch
	if last > s.Buf.Size() {
		return fmt.Errorf("device: surface rectangle outside buffer")
	}
	return nil
}

// extractRGBA copies the surface rectangle into a tight 4-channel grid.
func extractRGBA(s *Surface) []byte {
	ch := s.Format.Channels()
	w, h := s.RectWidth(), s.RectHeight()
	rowBytes := s.Stride * ch
	dst := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		row := s.Buf.Pix[(s.Top+y)*rowBytes+s.Left*ch:]
		if ch == 4 {
			copy(dst[y*w*4:(y+1)*w*4], row[:w*4])
			continue
		}
		for x := 0; x < w; x++ {
			di := (y*w + x) * 4
			si := x * 3
			dst[di+0] = row[si+0]
			dst[di+1] = row[si+1]
			dst[di+2] = row[si+2]
			dst[di+3] = 0xFF
		}
	}
	return dst
}

// storeRGBA writes a tight 4-channel grid into the surface rectangle,
// dropping the fourth channel for 3-channel surfaces.
func storeRGBA(s *Surface, src []byte) {
	ch := s.Format.Channels()
	w, h := s.RectWidth(), s.RectHeight()
	rowBytes := s.Stride * ch
	for y := 0; y < h; y++ {
		row := s.Buf.Pix[(s.Top+y)*rowBytes+s.Left*ch:]
		if ch == 4 {
			copy(row[:w*4], src[y*w*4:(y+1)*w*4])
			continue
		}
		for x := 0; x < w; x++ {
			si := (y*w + x) * 4
			di := x * 3
			row[di+0] = src[si+0]
			row[di+1] = src[si+1]
			row[di+2] = src[si+2]
		}
	}
}

func flipHorizontal(pix []byte, w, h int) {
	for y := 0; y < h; y++ {
		row := pix[y*w*4 : (y+1)*w*4]
		for x := 0; x < w/2; x++ {
			a := x * 4
			b := (w - 1 - x) * 4
			for i := 0; i < 4; i++ {
				row[a+i], row[b+i] = row[b+i], row[a+i]
			}
		}
	}
}

func flipVertical(pix []byte, w, h int) {
	tmp := make([]byte, w*4)
	for y := 0; y < h/2; y++ {
		a := pix[y*w*4 : (y+1)*w*4]
		b := pix[(h-1-y)*w*4 : (h-y)*w*4]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// rotate90 rotates clockwise; the result is h x w.
func rotate90(pix []byte, w, h int) []byte {
	out := make([]byte, len(pix))
	for dy := 0; dy < w; dy++ {
		for dx := 0; dx < h; dx++ {
			sx, sy := dy, h-1-dx
			copy(out[(dy*h+dx)*4:(dy*h+dx)*4+4], pix[(sy*w+sx)*4:(sy*w+sx)*4+4])
		}
	}
	return out
}

func rotate180(pix []byte, w, h int) []byte {
	out := make([]byte, len(pix))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := w-1-x, h-1-y
			copy(out[(y*w+x)*4:(y*w+x)*4+4], pix[(sy*w+sx)*4:(sy*w+sx)*4+4])
		}
	}
	return out
}

// rotate270 rotates counter-clockwise; the result is h x w.
func rotate270(pix []byte, w, h int) []byte {
	out := make([]byte, len(pix))
	for dy := 0; dy < w; dy++ {
		for dx := 0; dx < h; dx++ {
			sx, sy := w-1-dy, dx
			copy(out[(dy*h+dx)*4:(dy*h+dx)*4+4], pix[(sy*w+sx)*4:(sy*w+sx)*4+4])
		}
	}
	return out
}

func rescale(pix []byte, w, h, dw, dh int) []byte {
	src := &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
	return dst.Pix
}
