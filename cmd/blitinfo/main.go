// Command blitinfo probes the platform for a 2D-blit engine and runs a
// short accelerated workload on the software device, printing allocator
// statistics and primitive counters.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/blit"
	"github.com/gogpu/blit/device"
)

func main() {
	var (
		width   = flag.Int("width", 640, "source image width")
		height  = flag.Int("height", 480, "source image height")
		rounds  = flag.Int("rounds", 8, "transform rounds to run")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		blit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	soc := device.Probe()
	fmt.Printf("platform: %q supported=%v threeChannel=%v\n",
		soc.ID, soc.Supported, soc.Caps.ThreeChannel)

	svc := blit.New(device.NewSoftDevice(device.Capabilities{}))
	if err := svc.SetAccelerate(true); err != nil {
		log.Fatalf("enabling acceleration: %v", err)
	}
	defer svc.Close()

	src := newImage(*width, *height, 4)
	down := newImage(*width/2, *height/2, 4)
	mirror := newImage(*width, *height, 4)
	turned := newImage(*height, *width, 4)

	for i := 0; i < *rounds; i++ {
		if err := svc.Resize(src, down, blit.InterpLinear); err != nil {
			log.Fatalf("resize: %v", err)
		}
		if err := svc.Flip(src, mirror, blit.FlipHorizontal); err != nil {
			log.Fatalf("flip: %v", err)
		}
		if err := svc.Rotate(src, turned, blit.Rotate90); err != nil {
			log.Fatalf("rotate: %v", err)
		}
	}

	st := svc.Stats()
	fmt.Printf("allocations: %d (%d bytes)\n", st.Allocations, st.UsageBytes)
	fmt.Printf("cache: cacheable %d entries / %d bytes, uncached %d entries / %d bytes\n",
		st.CachedCount, st.CachedBytes, st.UncachedCount, st.UncachedBytes)
	for _, p := range []blit.Primitive{blit.PrimitiveResize, blit.PrimitiveFlip, blit.PrimitiveRotate} {
		fmt.Printf("%-7s %d\n", p, svc.CounterValue(p))
	}
}

func newImage(w, h, channels int) blit.Image {
	pix := make([]byte, w*h*channels)
	for i := range pix {
		pix[i] = byte(i * 31)
	}
	return blit.Image{
		Pix:      pix,
		Stride:   w * channels,
		Width:    w,
		Height:   h,
		Channels: channels,
		Depth:    8,
	}
}
