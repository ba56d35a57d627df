package units

// DefaultPixelsPerMetre is the fallback calibration when no camera calibration
// is configured. It corresponds to a 1080p overhead camera roughly 2.5 m above
// the putting surface.
const DefaultPixelsPerMetre = 420.0

// Calibration converts pixel-space measurements into metric units.
type Calibration struct {
	PixelsPerMetre float64
}

// DefaultCalibration returns a Calibration using DefaultPixelsPerMetre.
func DefaultCalibration() Calibration {
	return Calibration{PixelsPerMetre: DefaultPixelsPerMetre}
}

// SpeedMPS converts a pixel-per-second speed to metres per second.
func (c Calibration) SpeedMPS(speedPXS float64) float64 {
	ppm := c.PixelsPerMetre
	if ppm <= 0 {
		ppm = DefaultPixelsPerMetre
	}
	return speedPXS / ppm
}

// DistanceMetres converts a pixel distance to metres.
func (c Calibration) DistanceMetres(distPX float64) float64 {
	ppm := c.PixelsPerMetre
	if ppm <= 0 {
		ppm = DefaultPixelsPerMetre
	}
	return distPX / ppm
}

// ConvertSpeed converts a speed from pixels per second to the target units.
// Tracker state stores speeds in px/s.
func (c Calibration) ConvertSpeed(speedPXS float64, targetUnits string) float64 {
	switch targetUnits {
	case PXS:
		return speedPXS
	case MPS:
		return c.SpeedMPS(speedPXS)
	case MPH:
		return c.SpeedMPS(speedPXS) * 2.2369362920544
	case KMPH, KPH:
		return c.SpeedMPS(speedPXS) * 3.6
	default:
		return speedPXS
	}
}

// ConvertDistance converts a distance from pixels to the units matching the
// target speed unit (pixels for pxs, metres otherwise).
func (c Calibration) ConvertDistance(distPX float64, targetUnits string) float64 {
	if targetUnits == PXS || !IsValid(targetUnits) {
		return distPX
	}
	return c.DistanceMetres(distPX)
}
