package decoder

import (
	"sort"
	"sync"
)

// HardwareConfig selects and configures a hardware decoder driver.
type HardwareConfig struct {
	Enabled bool

	// Registered driver name. Empty selects the platform default.
	Driver string

	// Device node or adapter identifier, interpreted by the driver.
	Device string

	// ffmpeg binary used for capability queries.
	FFmpegPath string

	Worker WorkerConfig
}

// A function used to open a specific hardware driver.
type OpenHardwareFunc func(cfg HardwareConfig) Factory

var (
	registryMu sync.Mutex
	registry   = map[string]OpenHardwareFunc{}
)

// Register a hardware driver, identified by name. Platform drivers register
// themselves from init functions.
func RegisterHardware(name string, open OpenHardwareFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = open
}

// HardwareDrivers lists the registered driver names.
func HardwareDrivers() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	var names []string
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HardwareFactory returns the factory for the configured driver. Callers
// ask the result whether it is Available; they never check the platform.
func HardwareFactory(cfg HardwareConfig) Factory {
	if !cfg.Enabled {
		return Unavailable{}
	}

	name := cfg.Driver
	if name == "" {
		name = defaultHardwareDriver
	}
	log.Debug("Registered hardware drivers: %v", HardwareDrivers())

	registryMu.Lock()
	open, found := registry[name]
	registryMu.Unlock()
	if !found {
		if name != "" {
			log.Warn("Hardware driver '%s' not registered", name)
		}
		return Unavailable{}
	}
	cfg.Worker = cfg.Worker.withDefaults()
	return open(cfg)
}
