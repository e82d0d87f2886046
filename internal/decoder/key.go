package decoder

import (
	"github.com/pkg/errors"
)

// StreamKind distinguishes the video streams a participant may publish.
type StreamKind int

const (
	Camera StreamKind = iota
	ScreenShare
)

var streamKinds = [...]string{Camera: "camera", ScreenShare: "screenshare"}

func (k StreamKind) String() string {
	if k >= 0 && int(k) < len(streamKinds) {
		return streamKinds[k]
	}
	return "unknown"
}

func ParseStreamKind(s string) (StreamKind, error) {
	for k, name := range streamKinds {
		if s == name {
			return StreamKind(k), nil
		}
	}
	return 0, errors.Errorf("unknown stream kind %q", s)
}

// StreamKey identifies one video stream: a participant and the kind of
// stream they are sending.
type StreamKey struct {
	Participant string
	Kind        StreamKind
}

func (k StreamKey) String() string {
	return k.Participant + "/" + k.Kind.String()
}
