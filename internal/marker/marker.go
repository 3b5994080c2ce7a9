package marker

import (
	"fmt"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// Button identifies the mouse button of a click.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// ButtonEvent is a mouse button press delivered to a marker by the host's hit-testing.
type ButtonEvent struct {
	Button Button
	// Down is false for button release events.
	Down bool
}

// Action is invoked when a marker is clicked with the primary button.
type Action func(m *Marker)

// Graphic is what a marker hands to the render context each frame.
type Graphic struct {
	ID          string
	Kind        core.MarkerKind
	Position    core.Vector3
	Icon        string
	Title       string
	Label       string
	LabelOffset core.Size
	Size        core.Size
}

// Marker is an interactive overlay at a fixed spatial position. It cannot be
// changed after construction.
type Marker struct {
	id         string
	kind       core.MarkerKind
	position   core.Vector3
	style      Style
	label      string
	size       core.Size
	contentURL string
	action     Action
}

// New builds a marker at a position already in scene coordinates.
func New(def core.MarkerDef, position core.Vector3, action Action) (*Marker, error) {
	style, ok := StyleFor(def.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, def.Kind)
	}
	size := DefaultSize
	if def.Size != nil {
		size = *def.Size
	}
	return &Marker{
		id:         def.ID,
		kind:       def.Kind,
		position:   position,
		style:      style,
		label:      def.Label,
		size:       size,
		contentURL: def.ContentURL,
		action:     action,
	}, nil
}

func (m *Marker) ID() string             { return m.id }
func (m *Marker) Kind() core.MarkerKind  { return m.kind }
func (m *Marker) Position() core.Vector3 { return m.position }
func (m *Marker) Label() string          { return m.label }
func (m *Marker) ContentURL() string     { return m.contentURL }
func (m *Marker) Icon() string           { return m.style.Icon }

// Title is the tooltip text, e.g. "Video Camera: Shore Camera 1".
func (m *Marker) Title() string {
	return fmt.Sprintf("%s: %s", m.style.TitlePrefix, m.label)
}

// Graphic returns the draw description for this marker.
func (m *Marker) Graphic() Graphic {
	return Graphic{
		ID:          m.id,
		Kind:        m.kind,
		Position:    m.position,
		Icon:        m.style.Icon,
		Title:       m.Title(),
		Label:       m.label,
		LabelOffset: DefaultLabelOffset,
		Size:        m.size,
	}
}

// OnMouseButton handles a click on the marker. Primary-button events are
// reported handled, and only the press fires the bound action. Other buttons
// pass through.
func (m *Marker) OnMouseButton(ev ButtonEvent) bool {
	if ev.Button != ButtonPrimary {
		return false
	}
	if ev.Down && m.action != nil {
		m.action(m)
	}
	return true
}
