package marker

import (
	"errors"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// ErrUnknownKind is returned when a definition names a kind with no style.
var ErrUnknownKind = errors.New("unknown marker kind")

// Style is the per-kind presentation shared by every marker of that kind.
type Style struct {
	Icon        string
	TitlePrefix string
}

var styles = map[core.MarkerKind]Style{
	core.KindCamera:     {Icon: "/images/icons8-video-camera-64.png", TitlePrefix: "Video Camera"},
	core.KindSensor:     {Icon: "/images/sensor-64.png", TitlePrefix: "Sensor"},
	core.KindInstrument: {Icon: "/images/instrument-64.png", TitlePrefix: "Instrument"},
}

// DefaultSize is used when a definition does not set one.
var DefaultSize = core.Size{X: 40, Y: 40}

// DefaultLabelOffset places the label below the icon.
var DefaultLabelOffset = core.Size{X: 0, Y: 30}

// StyleFor returns the style registered for kind.
func StyleFor(kind core.MarkerKind) (Style, bool) {
	s, ok := styles[kind]
	return s, ok
}
