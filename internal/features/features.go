package features

import (
	"time"

	"github.com/smartblood-kerala/smartblood-backend/internal/blood"
	"github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// Feature records are plain string-keyed numbers; no nullable field ever
// reaches a model. Unknown inputs map to the documented defaults.

const (
	lastDonationClipDays  = 365.0
	neverDonatedDays      = 999.0
	defaultDonorAge       = 30.0
	pastResponseTimeHours = 6.0 // placeholder until response history lands
)

// Ordered key lists, one per model family. The registry validates artifact
// feature_keys against these at load time.
var (
	MatchKeys = []string{
		"blood_group_compatibility",
		"distance_km",
		"donor_availability",
		"last_donation_days",
		"reliability_score",
		"urgency_level",
		"units_required",
	}
	AvailabilityKeys = []string{
		"time_since_last_donation",
		"total_donations",
		"response_rate",
		"day_of_week",
		"hour_of_day",
		"is_weekend",
		"is_business_hours",
	}
	ResponseTimeKeys = []string{
		"distance_km",
		"donor_age",
		"past_response_times",
		"urgency_level",
		"time_of_day",
		"is_weekend",
	}
)

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func lastDonationDays(donor *types.Donor, now time.Time) float64 {
	if donor.LastDonationDate == nil {
		return neverDonatedDays
	}
	days := now.Sub(*donor.LastDonationDate).Hours() / 24
	if days < 0 {
		days = 0
	}
	if days > lastDonationClipDays {
		return lastDonationClipDays
	}
	return days
}

func donorAvailable(donor *types.Donor) bool {
	// Null availability counts as available; donors opt out explicitly.
	return donor.IsAvailable == nil || *donor.IsAvailable
}

// Match builds the donor-seeker match feature record.
func Match(donor *types.Donor, req *types.Request, distanceKm float64, now time.Time) map[string]float64 {
	compatible := 0.0
	for _, g := range blood.CompatibleDonorGroups(req.BloodGroup) {
		if g == donor.BloodGroup {
			compatible = 1
			break
		}
	}
	return map[string]float64{
		"blood_group_compatibility": compatible,
		"distance_km":               distanceKm,
		"donor_availability":        boolFeature(donorAvailable(donor)),
		"last_donation_days":        lastDonationDays(donor, now),
		"reliability_score":         donor.ReliabilityScore,
		"urgency_level":             float64(blood.UrgencyLevel(req.Urgency)),
		"units_required":            float64(req.UnitsRequired),
	}
}

// Availability builds the donor-availability classifier record for a point
// in time.
func Availability(donor *types.Donor, at time.Time) map[string]float64 {
	tsld := lastDonationDays(donor, at)
	if tsld > lastDonationClipDays {
		tsld = lastDonationClipDays
	}
	weekday := at.Weekday()
	hour := at.Hour()
	return map[string]float64{
		"time_since_last_donation": tsld,
		"total_donations":          float64(donor.TotalDonations),
		"response_rate":            donor.ReliabilityScore,
		"day_of_week":              float64(int(weekday)),
		"hour_of_day":              float64(hour),
		"is_weekend":               boolFeature(weekday == time.Saturday || weekday == time.Sunday),
		"is_business_hours":        boolFeature(hour >= 9 && hour < 17),
	}
}

// ResponseTime builds the response-time regressor record.
func ResponseTime(donor *types.Donor, req *types.Request, distanceKm float64, at time.Time) map[string]float64 {
	age := defaultDonorAge
	if donor.DateOfBirth != nil {
		age = at.Sub(*donor.DateOfBirth).Hours() / 24 / 365.25
		if age <= 0 {
			age = defaultDonorAge
		}
	}
	weekday := at.Weekday()
	return map[string]float64{
		"distance_km":         distanceKm,
		"donor_age":           age,
		"past_response_times": pastResponseTimeHours,
		"urgency_level":       float64(blood.UrgencyLevel(req.Urgency)),
		"time_of_day":         float64(at.Hour()),
		"is_weekend":          boolFeature(weekday == time.Saturday || weekday == time.Sunday),
	}
}
