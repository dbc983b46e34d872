package geo

import (
	"math"
	"strconv"
)

// EarthRadiusKM is the mean Earth radius used by HaversineKM.
const EarthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two points in kilometers.
func HaversineKM(a, b Point) float64 {
	return haversineKM(a.Lat(), a.Lng(), b.Lat(), b.Lng())
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKM * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// FormatKM renders a distance with exactly one decimal. Halves round up.
func FormatKM(km float64) string {
	return strconv.FormatFloat(math.Floor(km*10+0.5)/10, 'f', 1, 64)
}
