// Package watercalc converts raw tank telemetry into user-facing metrics:
// tank volume from ultrasonic distance, filter health percentage, and a
// consumption-based depletion forecast. All functions are pure.
package watercalc

// Ultrasonic calibration constants for the standard 500 L tank. The sensor
// sits at the top of the tank, so a larger distance means less water:
// MaxDistance is the reading with the tank full, MinDistance with it empty.
const (
	MaxDistance = 29.0  // cm, full tank
	MinDistance = 86.0  // cm, empty tank
	MaxVolume   = 500.0 // liters, rated capacity
)

// VolumeFromDistance converts a smoothed distance reading (cm) to liters.
// Readings outside the calibration band saturate at 0 or MaxVolume, so the
// result is monotonically non-increasing in the distance.
func VolumeFromDistance(distance float64) float64 {
	if distance >= MinDistance {
		return 0
	}
	if distance <= MaxDistance {
		return MaxVolume
	}
	return (MinDistance - distance) / (MinDistance - MaxDistance) * MaxVolume
}

// MeanDistance averages a window of raw readings to smooth sensor noise.
// An empty window yields the empty-tank distance so downstream volume
// conversion saturates at 0 rather than inventing water.
func MeanDistance(readings []float64) float64 {
	if len(readings) == 0 {
		return MinDistance
	}
	var sum float64
	for _, r := range readings {
		sum += r
	}
	return sum / float64(len(readings))
}
