//go:build !linux

package decoder

// No hardware driver is built in on this platform.
const defaultHardwareDriver = ""
