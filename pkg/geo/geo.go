package geo

import "math"

const (
	// EarthRadiusKM is the radius of the earth used by the haversine formula.
	EarthRadiusKM = 6378.137
)

// DistanceMeters returns the great-circle distance in meters between two
// coordinates using the haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2*math.Pi/180 - lat1*math.Pi/180
	dLon := lon2*math.Pi/180 - lon1*math.Pi/180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c * 1000
}

// Offset returns the destination coordinate after moving northMeters north
// and eastMeters east of the given coordinate. It uses a flat-earth
// approximation that is accurate to about a meter for offsets under a
// kilometer, which is all the zone layout needs.
func Offset(lat, lon, northMeters, eastMeters float64) (float64, float64) {
	// delta latitude equal to 50m, accurate by +/- 1 meter
	const fiftyMetersDeltaLat = 0.00045
	// delta longitude equal to 50m, accurate by +/- 1 meter
	const fiftyMetersDeltaLon = 0.00055

	return lat + northMeters/50*fiftyMetersDeltaLat,
		lon + eastMeters/50*fiftyMetersDeltaLon
}
