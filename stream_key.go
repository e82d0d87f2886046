package alohadecode

import (
	"github.com/lanikai/alohadecode/internal/decoder"
)

// StreamKey identifies one video stream: a participant and the kind of
// stream they publish. It renders as "participant/kind".
type StreamKey = decoder.StreamKey

type StreamKind = decoder.StreamKind

const (
	Camera      = decoder.Camera
	ScreenShare = decoder.ScreenShare
)

// ParseStreamKind accepts "camera" or "screenshare".
func ParseStreamKind(s string) (StreamKind, error) {
	return decoder.ParseStreamKind(s)
}
