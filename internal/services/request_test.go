package services

import (
  "errors"
  "testing"
  "time"
)

func validInput() CreateRequestInput {
  return CreateRequestInput{
    BloodGroup:    "A+",
    UnitsRequired: 2,
    Urgency:       "high",
    PatientName:   "Test Patient",
    RequiredBy:    time.Now().Add(24 * time.Hour),
  }
}

func TestValidateCreateRequest(t *testing.T) {
  in := validInput()
  if err := validateCreateRequest(&in); err != nil {
    t.Fatalf("valid input rejected: %v", err)
  }

  in = validInput()
  in.BloodGroup = "C+"
  if err := validateCreateRequest(&in); !errors.Is(err, ErrValidation) {
    t.Fatalf("bad blood group: err = %v", err)
  }

  in = validInput()
  in.BloodGroup = " o- "
  if err := validateCreateRequest(&in); err != nil {
    t.Fatalf("blood group should be normalized: %v", err)
  }
  if in.BloodGroup != "O-" {
    t.Fatalf("normalized group = %q", in.BloodGroup)
  }

  in = validInput()
  in.UnitsRequired = 0
  if err := validateCreateRequest(&in); !errors.Is(err, ErrValidation) {
    t.Fatalf("zero units: err = %v", err)
  }
  in = validInput()
  in.UnitsRequired = 21
  if err := validateCreateRequest(&in); !errors.Is(err, ErrValidation) {
    t.Fatalf("21 units: err = %v", err)
  }

  in = validInput()
  in.Urgency = "extreme"
  if err := validateCreateRequest(&in); !errors.Is(err, ErrValidation) {
    t.Fatalf("bad urgency: err = %v", err)
  }

  in = validInput()
  in.Urgency = ""
  if err := validateCreateRequest(&in); err != nil {
    t.Fatalf("empty urgency should default: %v", err)
  }
  if in.Urgency != "medium" {
    t.Fatalf("default urgency = %q", in.Urgency)
  }

  in = validInput()
  in.RequiredBy = time.Now().Add(-time.Hour)
  if err := validateCreateRequest(&in); !errors.Is(err, ErrValidation) {
    t.Fatalf("past required_by: err = %v", err)
  }
}
