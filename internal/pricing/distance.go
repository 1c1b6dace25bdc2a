package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	earthRadiusKM = 6371.0
	// averageSpeedKMH backs the duration estimate when no explicit legs are
	// supplied. Calibrated for urban Zambian traffic.
	averageSpeedKMH = 30.0
)

// haversineKM returns the great-circle distance between two coordinates.
func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// routeDistanceKM sums great-circle distances over consecutive geo stops.
func routeDistanceKM(stops []StopInput) decimal.Decimal {
	total := 0.0
	for i := 1; i < len(stops); i++ {
		prev, cur := stops[i-1], stops[i]
		total += haversineKM(*prev.Lat, *prev.Lng, *cur.Lat, *cur.Lng)
	}
	return decimal.NewFromFloat(total)
}

// estimateDurationMin derives trip duration from distance at the average speed.
func estimateDurationMin(distanceKM decimal.Decimal) decimal.Decimal {
	speed := decimal.NewFromFloat(averageSpeedKMH)
	return distanceKM.Div(speed).Mul(decimal.NewFromInt(60))
}
