package exposure

import(
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A body whose shutter can't go slower than the base, so extra light
// has to come from the aperture and the ISO.
func tightConstraints() Constraints {
	return Constraints{
		ISOMin: 100, ISOMax: 800,
		ShutterMin: 1.0/8000.0, ShutterMax: 1.0/125.0,
		ApertureMin: 1.4, ApertureMax: 16,
		QuantizationStep: 1.0/3.0,
	}
}

func TestAllocateBalanced(t *testing.T) {
	s, l, err := Allocate(3, DefaultBase(), DefaultConstraints(), PriorityBalanced)
	require.NoError(t, err)

	assert.InDelta(t, 1.0/60.0, s.ShutterSeconds, 1e-12)
	assert.InDelta(t, 5.6, s.Aperture, 1e-12)
	assert.InDelta(t, 200.0, s.ISO, 1e-12)

	assert.Empty(t, l.Hits)
	assert.InDelta(t, 3.0, l.QuantizedEV, 1e-9)
	assert.InDelta(t, 1.0, l.Planned.Shutter, 1e-9)
	assert.InDelta(t, l.QuantizedEV - l.AchievedEV, l.Shortfall, 1e-12)
	assert.InDelta(t, s.StopsFrom(DefaultBase()), l.AchievedEV, 1e-9)
	assert.Less(t, l.Shortfall, 0.0, "the marked values give a little more light than asked for")
}

func TestAllocateIsIdempotent(t *testing.T) {
	for _, p := range Priorities {
		s1, l1, err1 := Allocate(-2.3, DefaultBase(), DefaultConstraints(), p)
		s2, l2, err2 := Allocate(-2.3, DefaultBase(), DefaultConstraints(), p)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, s1, s2, string(p))
		assert.Equal(t, l1, l2, string(p))
	}
}

func TestAllocateLogsISOLimit(t *testing.T) {
	c := tightConstraints()

	// Shutter can't move, so 60% of 8 stops goes to aperture and 40% to
	// ISO; 3.2 stops over ISO100 is past the ISO800 ceiling
	s, l, err := Allocate(8, DefaultBase(), c, PriorityShutter)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, l.Planned.Shutter, 1e-9)
	assert.InDelta(t, 4.8, l.Planned.Aperture, 1e-9)
	assert.InDelta(t, 3.2, l.Planned.ISO, 1e-9)
	assert.True(t, l.Hit(HitISOMax))
	assert.False(t, l.Hit(HitEVMax))
	assert.Equal(t, 800.0, s.ISO)
	assert.InDelta(t, 1.6, s.Aperture, 1e-12)
	assert.Greater(t, l.Shortfall, 0.0)

	// ISO priority leaves ISO alone, so its ceiling doesn't come up
	s, l, err = Allocate(8, DefaultBase(), c, PriorityISO)
	require.NoError(t, err)
	assert.False(t, l.Hit(HitISOMax))
	assert.True(t, l.Hit(HitShutterMax))
	assert.Equal(t, 100.0, s.ISO)
	assert.InDelta(t, 1.0/125.0, s.ShutterSeconds, 1e-12)

	// A small change fits under the ceiling
	_, l, err = Allocate(1, DefaultBase(), c, PriorityShutter)
	require.NoError(t, err)
	assert.False(t, l.Hit(HitISOMax))
}

func TestAllocateLogsPriorityBound(t *testing.T) {
	// The shutter can't get any slower than the base, so it saturates first
	_, l, err := Allocate(8, DefaultBase(), tightConstraints(), PriorityShutter)
	require.NoError(t, err)
	assert.True(t, l.Hit(HitShutterMax))
	assert.InDelta(t, 0.0, l.Planned.Shutter, 1e-9)

	// f/8 -> f/1.4 is only ~5 stops
	_, l, err = Allocate(8, DefaultBase(), DefaultConstraints(), PriorityAperture)
	require.NoError(t, err)
	assert.True(t, l.Hit(HitApertureMin))
	assert.False(t, l.Hit(HitApertureMax))

	// f/8 -> f/22 is only ~3 stops
	_, l, err = Allocate(-5, DefaultBase(), DefaultConstraints(), PriorityAperture)
	require.NoError(t, err)
	assert.True(t, l.Hit(HitApertureMax))

	_, l, err = Allocate(1, DefaultBase(), DefaultConstraints(), PriorityAperture)
	require.NoError(t, err)
	assert.Empty(t, l.Hits)
}

func TestAllocateClampsTarget(t *testing.T) {
	evMin, evMax := DefaultConstraints().EVRange(DefaultBase())

	s, l, err := Allocate(40, DefaultBase(), DefaultConstraints(), PriorityBalanced)
	require.NoError(t, err)
	assert.True(t, l.Hit(HitEVMax))
	assert.InDelta(t, evMax, l.ClampedEV, 1e-9)
	assert.LessOrEqual(t, l.QuantizedEV, evMax + 1e-9)
	require.NoError(t, DefaultConstraints().Admits(s))

	s, l, err = Allocate(-40, DefaultBase(), DefaultConstraints(), PriorityAperture)
	require.NoError(t, err)
	assert.True(t, l.Hit(HitEVMin))
	assert.InDelta(t, evMin, l.ClampedEV, 1e-9)
	require.NoError(t, DefaultConstraints().Admits(s))
}

func TestAllocateQuantizes(t *testing.T) {
	_, l, err := Allocate(0.4, DefaultBase(), DefaultConstraints(), PriorityAperture)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, l.QuantizedEV, 1e-9)
	assert.InDelta(t, 1.0/3.0, l.Planned.Aperture, 1e-9)

	s, l, err := Allocate(0, DefaultBase(), DefaultConstraints(), PriorityBalanced)
	require.NoError(t, err)
	assert.Equal(t, DefaultBase(), s)
	assert.InDelta(t, 0.0, l.AchievedEV, 1e-9)
}

func TestAllocateErrors(t *testing.T) {
	c := DefaultConstraints()
	c.ISOMax = 50
	_, _, err := Allocate(1, DefaultBase(), c, PriorityBalanced)
	assert.ErrorIs(t, err, ErrInvalidConstraints)

	_, _, err = Allocate(1, Settings{ShutterSeconds: 60, Aperture: 8, ISO: 100}, DefaultConstraints(), PriorityBalanced)
	assert.ErrorIs(t, err, ErrInvalidConstraints, "base is outside the constraints")

	_, _, err = Allocate(1, DefaultBase(), DefaultConstraints(), Priority("program"))
	assert.ErrorIs(t, err, ErrInvalidConstraints)

	c = DefaultConstraints()
	c.QuantizationStep = 0
	_, _, err = Allocate(1, DefaultBase(), c, PriorityBalanced)
	assert.ErrorIs(t, err, ErrInvalidConstraints)
}

func TestClosestMarkedValues(t *testing.T) {
	assert.InDelta(t, 1.0/250.0, ClosestShutterSpeed(0.0041), 1e-12)
	assert.InDelta(t, 5.6, ClosestAperture(5.5), 1e-12)
	assert.InDelta(t, 640.0, ClosestISO(600), 1e-12)
}

func TestEV100(t *testing.T) {
	assert.InDelta(t, 0.0, Settings{ShutterSeconds: 1, Aperture: 1, ISO: 100}.EV100(), 1e-12)
	assert.InDelta(t, 1.0, Settings{ShutterSeconds: 1, Aperture: 1, ISO: 200}.StopsFrom(
		Settings{ShutterSeconds: 1, Aperture: 1, ISO: 100}), 1e-12)
}
