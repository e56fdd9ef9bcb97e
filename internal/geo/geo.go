package geo

import (
	"math"
	"strings"
)

const earthRadiusKm = 6371.0

// MissingDistanceKm is returned when a coordinate is absent so downstream
// radius filters drop the candidate unless a fallback location was
// substituted upstream.
const MissingDistanceKm = 999.0

const kmPerDegree = 111.0

// DistanceKm computes the Haversine great-circle distance between two
// points in kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceKmPtr handles optional coordinates. Any nil coordinate yields
// MissingDistanceKm.
func DistanceKmPtr(lat1, lng1, lat2, lng2 *float64) float64 {
	if lat1 == nil || lng1 == nil || lat2 == nil || lng2 == nil {
		return MissingDistanceKm
	}
	return DistanceKm(*lat1, *lng1, *lat2, *lng2)
}

type Point struct {
	Lat float64
	Lng float64
}

type Box struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoundingBox returns the prefilter box for a radius around a point, using
// the flat 111 km-per-degree approximation. It intentionally over-selects;
// the exact Haversine filter runs afterwards.
func BoundingBox(lat, lng, radiusKm float64) Box {
	d := radiusKm / kmPerDegree
	return Box{
		MinLat: lat - d,
		MaxLat: lat + d,
		MinLng: lng - d,
		MaxLng: lng + d,
	}
}

var districtCentroids = map[string]Point{
	"thiruvananthapuram": {8.5241, 76.9366},
	"kollam":             {8.8932, 76.6141},
	"pathanamthitta":     {9.2648, 76.7870},
	"alappuzha":          {9.4981, 76.3388},
	"kottayam":           {9.5916, 76.5222},
	"idukki":             {9.8494, 76.9720},
	"ernakulam":          {9.9312, 76.2673},
	"thrissur":           {10.5276, 76.2144},
	"palakkad":           {10.7867, 76.6548},
	"malappuram":         {11.0510, 76.0711},
	"kozhikode":          {11.2588, 75.7804},
	"wayanad":            {11.6854, 76.1320},
	"kannur":             {11.8745, 75.3704},
	"kasaragod":          {12.4996, 74.9869},
}

// Neighboring districts for emergency fan-out, keyed by normalized name.
var districtNeighbors = map[string][]string{
	"thiruvananthapuram": {"kollam"},
	"kollam":             {"thiruvananthapuram", "pathanamthitta", "alappuzha"},
	"pathanamthitta":     {"kollam", "alappuzha", "kottayam", "idukki"},
	"alappuzha":          {"kollam", "pathanamthitta", "kottayam", "ernakulam"},
	"kottayam":           {"alappuzha", "pathanamthitta", "idukki", "ernakulam"},
	"idukki":             {"pathanamthitta", "kottayam", "ernakulam", "thrissur"},
	"ernakulam":          {"alappuzha", "kottayam", "idukki", "thrissur"},
	"thrissur":           {"ernakulam", "idukki", "palakkad", "malappuram"},
	"palakkad":           {"thrissur", "malappuram"},
	"malappuram":         {"thrissur", "palakkad", "kozhikode", "wayanad"},
	"kozhikode":          {"malappuram", "wayanad", "kannur"},
	"wayanad":            {"malappuram", "kozhikode", "kannur"},
	"kannur":             {"kozhikode", "wayanad", "kasaragod"},
	"kasaragod":          {"kannur"},
}

const defaultDistrict = "ernakulam"

func normalizeDistrict(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DistrictCentroid resolves a Kerala district name to its centroid.
// Unknown names fall back to Ernakulam.
func DistrictCentroid(name string) Point {
	if p, ok := districtCentroids[normalizeDistrict(name)]; ok {
		return p
	}
	return districtCentroids[defaultDistrict]
}

// KnownDistrict reports whether the name maps to one of the 14 districts.
func KnownDistrict(name string) bool {
	_, ok := districtCentroids[normalizeDistrict(name)]
	return ok
}

// NeighboringDistricts returns the district itself plus its neighbors,
// normalized. Unknown districts return just the default district.
func NeighboringDistricts(name string) []string {
	n := normalizeDistrict(name)
	if _, ok := districtCentroids[n]; !ok {
		n = defaultDistrict
	}
	out := []string{n}
	out = append(out, districtNeighbors[n]...)
	return out
}
