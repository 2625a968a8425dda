package channel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/pixel"
)

func TestListInsertionOrder(t *testing.T) {
	l := NewList()
	l.Insert("B", Channel{Type: pixel.U8})
	l.Insert("A", Channel{Type: pixel.U8})
	l.Insert("B", Channel{Type: pixel.U16, XSampling: 1, YSampling: 1})

	require.Equal(t, []string{"B", "A"}, l.Names())

	c, ok := l.Find("B")
	require.True(t, ok)
	require.Equal(t, pixel.U16, c.Type)
}

func TestListEqualIsOrderSensitive(t *testing.T) {
	a := NewList()
	a.Insert("R", Channel{Type: pixel.U8})
	a.Insert("G", Channel{Type: pixel.U8})

	b := NewList()
	b.Insert("G", Channel{Type: pixel.U8})
	b.Insert("R", Channel{Type: pixel.U8})

	require.False(t, a.Equal(b))
	require.True(t, a.Equal(a.Clone()))
}

func TestLayerNames(t *testing.T) {
	l := NewList()
	l.Insert("left.R", Channel{Type: pixel.U8})
	l.Insert("left.G", Channel{Type: pixel.U8})
	l.Insert("right.R", Channel{Type: pixel.U8})

	require.Equal(t, []string{"R", "G"}, l.LayerNames("left."))
}

func TestStandardNames(t *testing.T) {
	require.Equal(t, []string{"Mono"}, StandardNames(1))
	require.Equal(t, []string{"Left", "Right"}, StandardNames(2))
	require.Equal(t,
		[]string{"Left", "Right", "Center", "RearLeft", "RearRight", "LFE"},
		StandardNames(6))
	require.Equal(t, []string{"Channel1", "Channel2", "Channel3"}, StandardNames(3))
}
