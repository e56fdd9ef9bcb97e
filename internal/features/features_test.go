package features

import (
	"testing"
	"time"

	"github.com/smartblood-kerala/smartblood-backend/internal/types"
)

func keysMatch(t *testing.T, got map[string]float64, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("feature count = %d, want %d: %#v", len(got), len(want), got)
	}
	for _, k := range want {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing feature key %q", k)
		}
	}
}

func TestMatchFeatures(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -122)
	donor := &types.Donor{
		BloodGroup:       "O-",
		LastDonationDate: &last,
		ReliabilityScore: 0.8,
	}
	req := &types.Request{BloodGroup: "A+", Urgency: "critical", UnitsRequired: 2}

	f := Match(donor, req, 12.5, now)
	keysMatch(t, f, MatchKeys)
	if f["blood_group_compatibility"] != 1 {
		t.Fatalf("O- donor should be compatible with A+ recipient")
	}
	if f["distance_km"] != 12.5 || f["urgency_level"] != 4 || f["units_required"] != 2 {
		t.Fatalf("unexpected features: %#v", f)
	}
	if f["last_donation_days"] != 122 {
		t.Fatalf("last_donation_days = %v, want 122", f["last_donation_days"])
	}
	// Null availability counts as available.
	if f["donor_availability"] != 1 {
		t.Fatalf("donor_availability = %v, want 1", f["donor_availability"])
	}
}

func TestMatchFeaturesNeverDonatedAndIncompatible(t *testing.T) {
	now := time.Now()
	donor := &types.Donor{BloodGroup: "B+"}
	req := &types.Request{BloodGroup: "A+", Urgency: "low", UnitsRequired: 1}
	f := Match(donor, req, 3, now)
	if f["last_donation_days"] != 999 {
		t.Fatalf("never donated = %v, want 999", f["last_donation_days"])
	}
	if f["blood_group_compatibility"] != 0 {
		t.Fatalf("B+ donor must be incompatible with A+ recipient")
	}
}

func TestMatchFeaturesClipsLastDonation(t *testing.T) {
	now := time.Now()
	last := now.AddDate(-3, 0, 0)
	donor := &types.Donor{BloodGroup: "A+", LastDonationDate: &last}
	req := &types.Request{BloodGroup: "A+", Urgency: "medium", UnitsRequired: 1}
	f := Match(donor, req, 1, now)
	if f["last_donation_days"] != 365 {
		t.Fatalf("clip = %v, want 365", f["last_donation_days"])
	}
}

func TestAvailabilityFeatures(t *testing.T) {
	// Saturday 10:00.
	at := time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC)
	donor := &types.Donor{TotalDonations: 7, ReliabilityScore: 0.9}
	f := Availability(donor, at)
	keysMatch(t, f, AvailabilityKeys)
	if f["is_weekend"] != 1 || f["is_business_hours"] != 1 {
		t.Fatalf("unexpected time flags: %#v", f)
	}
	if f["day_of_week"] != 6 || f["hour_of_day"] != 10 {
		t.Fatalf("unexpected time features: %#v", f)
	}
	if f["total_donations"] != 7 || f["response_rate"] != 0.9 {
		t.Fatalf("unexpected donor features: %#v", f)
	}
	if f["time_since_last_donation"] != 365 {
		t.Fatalf("never donated availability clip = %v, want 365", f["time_since_last_donation"])
	}
}

func TestResponseTimeFeatures(t *testing.T) {
	// Wednesday 18:00.
	at := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	donor := &types.Donor{DateOfBirth: &dob}
	req := &types.Request{Urgency: "high"}
	f := ResponseTime(donor, req, 8, at)
	keysMatch(t, f, ResponseTimeKeys)
	if f["donor_age"] < 34 || f["donor_age"] > 35 {
		t.Fatalf("donor_age = %v, want ~34.5", f["donor_age"])
	}
	if f["urgency_level"] != 3 || f["is_weekend"] != 0 || f["time_of_day"] != 18 {
		t.Fatalf("unexpected features: %#v", f)
	}
}

func TestResponseTimeDefaultsAge(t *testing.T) {
	f := ResponseTime(&types.Donor{}, &types.Request{Urgency: "low"}, 1, time.Now())
	if f["donor_age"] != 30 {
		t.Fatalf("default age = %v, want 30", f["donor_age"])
	}
}
