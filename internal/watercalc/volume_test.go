package watercalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolumeFromDistance_CalibrationEndpoints(t *testing.T) {
	assert.Equal(t, MaxVolume, VolumeFromDistance(MaxDistance))
	assert.Equal(t, 0.0, VolumeFromDistance(MinDistance))
}

func TestVolumeFromDistance_Midpoint(t *testing.T) {
	mid := (MaxDistance + MinDistance) / 2 // 57.5 cm
	assert.InDelta(t, 250.0, VolumeFromDistance(mid), 0.001)
}

func TestVolumeFromDistance_SaturatesOutsideBand(t *testing.T) {
	assert.Equal(t, MaxVolume, VolumeFromDistance(0))
	assert.Equal(t, MaxVolume, VolumeFromDistance(10))
	assert.Equal(t, 0.0, VolumeFromDistance(120))
	assert.Equal(t, 0.0, VolumeFromDistance(86.0001))
}

func TestVolumeFromDistance_MonotonicallyNonIncreasing(t *testing.T) {
	prev := VolumeFromDistance(0)
	for d := 0.5; d <= 150; d += 0.5 {
		v := VolumeFromDistance(d)
		assert.LessOrEqual(t, v, prev, "volume increased at distance %.1f", d)
		prev = v
	}
}

func TestMeanDistance(t *testing.T) {
	assert.InDelta(t, 50.0, MeanDistance([]float64{40, 50, 60}), 0.001)
	// empty window reads as an empty tank
	assert.Equal(t, MinDistance, MeanDistance(nil))
}
