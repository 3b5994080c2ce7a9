package dispatcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSink_ShowAndHide(t *testing.T) {
	s := NewStateSink()
	assert.False(t, s.Visible())

	require.NoError(t, s.ShowOverlay(Event{MarkerID: "cam"}))
	assert.True(t, s.Visible())
	e, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, "cam", e.MarkerID)

	s.Hide()
	assert.False(t, s.Visible())
	_, ok = s.Current()
	assert.False(t, ok)
	assert.Equal(t, 1, s.ShowCount())
}

func TestMultiSink_FansOutAndJoinsErrors(t *testing.T) {
	a := NewStateSink()
	b := NewStateSink()
	boom := errors.New("boom")

	m := NewMultiSink(a, nil, SinkFunc(func(Event) error { return boom }), b)
	err := m.ShowOverlay(Event{MarkerID: "cam"})

	require.ErrorIs(t, err, boom)
	assert.True(t, a.Visible())
	assert.True(t, b.Visible(), "sink after a failing one still receives the event")
}
