package device

import (
	"os"
	"slices"
	"strings"
	"sync"
)

// socIDPath is the sysfs file holding the platform identity.
const socIDPath = "/sys/devices/soc0/soc_id"

// SoC identifies the platform and the blit engine features it provides.
type SoC struct {
	// ID is the trimmed platform identity string, empty if unknown.
	ID string

	// Supported reports whether the platform carries a known blit engine.
	Supported bool

	// Caps are the engine capabilities of the platform.
	Caps Capabilities
}

// Platforms with a known blit engine, and among those, the ones whose
// engine accepts 3-channel surfaces natively.
var (
	supportedSoCs    = []string{"i.MX8MP", "i.MX93", "i.MX8QM", "i.MX8QXP"}
	threeChannelSoCs = []string{"i.MX8QM", "i.MX8QXP"}
)

var probeOnce = sync.OnceValue(func() SoC {
	return probeFile(socIDPath)
})

// Probe reads the platform identity from sysfs and reports blit engine
// support. The result is cached for the process lifetime.
func Probe() SoC {
	return probeOnce()
}

func probeFile(path string) SoC {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SoC{}
	}
	id := strings.TrimRight(string(raw), "\t\f\v\n\r ")

	soc := SoC{ID: id}
	if !slices.Contains(supportedSoCs, id) {
		return soc
	}
	soc.Supported = true
	soc.Caps.ThreeChannel = slices.Contains(threeChannelSoCs, id)
	return soc
}
