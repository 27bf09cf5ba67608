// Package geo holds the great-circle math used for responder matching.
// The spherical model is accurate to well under GPS error at the urban
// ranges this system queries (<50 km), and it is closed-form.
package geo

import (
	"math"
	"strconv"
)

const earthRadiusKm = 6371.0

const (
	MinRadiusKm = 0.1
	MaxRadiusKm = 50.0
)

// DistanceKm returns the great-circle distance between two points using
// the spherical law of cosines with Earth radius 6371 km.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180
	cosine := math.Cos(rlat1)*math.Cos(rlat2)*math.Cos(dlng) + math.Sin(rlat1)*math.Sin(rlat2)
	// Floating point can push the argument just outside [-1,1].
	if cosine > 1 {
		cosine = 1
	} else if cosine < -1 {
		cosine = -1
	}
	return earthRadiusKm * math.Acos(cosine)
}

// ClampRadiusKm bounds caller-supplied radii: near-zero queries are as
// useless as whole-planet ones.
func ClampRadiusKm(radiusKm float64) float64 {
	if radiusKm < MinRadiusKm {
		return MinRadiusKm
	}
	if radiusKm > MaxRadiusKm {
		return MaxRadiusKm
	}
	return radiusKm
}

func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func ValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// MapsLink builds the shared map deep-link for a coordinate pair.
func MapsLink(lat, lng float64) string {
	return "https://www.google.com/maps?q=" + formatCoord(lat) + "," + formatCoord(lng)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
