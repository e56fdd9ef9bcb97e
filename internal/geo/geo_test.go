package geo

import (
	"math"
	"testing"
)

func TestDistanceKmZeroAndSymmetry(t *testing.T) {
	if d := DistanceKm(9.9312, 76.2673, 9.9312, 76.2673); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
	ab := DistanceKm(9.9312, 76.2673, 10.5276, 76.2144)
	ba := DistanceKm(10.5276, 76.2144, 9.9312, 76.2673)
	if math.Abs(ab-ba) > 1e-6 {
		t.Fatalf("asymmetric distance: %v vs %v", ab, ba)
	}
}

func TestDistanceKmErnakulamThrissur(t *testing.T) {
	// Ernakulam centroid to Thrissur centroid is roughly 66 km.
	d := DistanceKm(9.9312, 76.2673, 10.5276, 76.2144)
	if d < 60 || d > 72 {
		t.Fatalf("ernakulam-thrissur distance = %v, want ~66", d)
	}
}

func TestDistanceKmNearby(t *testing.T) {
	d := DistanceKm(9.9312, 76.2673, 9.9500, 76.3000)
	if d < 2 || d > 5 {
		t.Fatalf("nearby distance = %v, want ~3-4", d)
	}
}

func TestDistanceKmPtrMissing(t *testing.T) {
	lat := 9.9312
	lng := 76.2673
	if d := DistanceKmPtr(&lat, &lng, nil, &lng); d != MissingDistanceKm {
		t.Fatalf("missing coordinate distance = %v, want sentinel", d)
	}
	if d := DistanceKmPtr(&lat, &lng, &lat, &lng); d != 0 {
		t.Fatalf("full coordinates distance = %v, want 0", d)
	}
}

func TestBoundingBox(t *testing.T) {
	b := BoundingBox(10.0, 76.0, 22.2)
	if math.Abs((b.MaxLat-b.MinLat)-0.4) > 1e-9 {
		t.Fatalf("lat span = %v, want 0.4", b.MaxLat-b.MinLat)
	}
	if b.MinLng >= 76.0 || b.MaxLng <= 76.0 {
		t.Fatalf("box does not contain center lng: %+v", b)
	}
}

func TestDistrictCentroid(t *testing.T) {
	p := DistrictCentroid("Ernakulam")
	if p.Lat != 9.9312 || p.Lng != 76.2673 {
		t.Fatalf("ernakulam centroid = %+v", p)
	}
	// Unknown districts fall back to Ernakulam.
	if q := DistrictCentroid("Atlantis"); q != p {
		t.Fatalf("unknown district centroid = %+v, want ernakulam", q)
	}
	if !KnownDistrict("  KASARAGOD ") {
		t.Fatal("kasaragod should be known")
	}
	if KnownDistrict("Atlantis") {
		t.Fatal("atlantis should be unknown")
	}
}

func TestNeighboringDistricts(t *testing.T) {
	got := NeighboringDistricts("Ernakulam")
	if got[0] != "ernakulam" || len(got) < 3 {
		t.Fatalf("unexpected neighbors: %#v", got)
	}
	seen := map[string]bool{}
	for _, d := range got {
		if seen[d] {
			t.Fatalf("duplicate district %q", d)
		}
		seen[d] = true
		if !KnownDistrict(d) {
			t.Fatalf("unknown district %q in neighbor list", d)
		}
	}
}
