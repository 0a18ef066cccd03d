package geofence

import (
	"errors"
	"math"
)

// DefaultRadiusFeet is the verification radius applied when a job does not
// override it.
const DefaultRadiusFeet = 200.0

// earthRadiusFeet is the mean Earth radius (6371 km) expressed in feet.
const earthRadiusFeet = 20902231.0

// ErrMissingCoordinates is returned when a job has no property coordinates
// and therefore can never pass a geofence check.
var ErrMissingCoordinates = errors.New("job has no property coordinates")

// DistanceFeet returns the great-circle (haversine) distance in feet between
// two lat/lng points.
func DistanceFeet(lat1, lng1, lat2, lng2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusFeet * c
}

// Verify reports whether distanceFeet is within radiusFeet. The boundary is
// inclusive: a point at exactly the radius passes.
func Verify(distanceFeet, radiusFeet float64) bool {
	return distanceFeet <= radiusFeet
}

// Evaluate computes the distance from the given point to the property and
// verifies it against radiusFeet. propertyLat/propertyLng are pointers
// because jobs may be created without coordinates; such jobs return
// ErrMissingCoordinates.
func Evaluate(propertyLat, propertyLng *float64, lat, lng, radiusFeet float64) (distanceFeet float64, verified bool, err error) {
	if propertyLat == nil || propertyLng == nil {
		return 0, false, ErrMissingCoordinates
	}
	d := DistanceFeet(*propertyLat, *propertyLng, lat, lng)
	return d, Verify(d, radiusFeet), nil
}
