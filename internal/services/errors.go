package services

import "errors"

// Error kinds handlers map to HTTP status codes. Services wrap these with
// %w and a short message.
var (
  ErrValidation = errors.New("validation failed")
  ErrForbidden  = errors.New("forbidden")
  ErrNotFound   = errors.New("not found")
)
