package federation

import "errors"

var (
	ErrProviderNotFound  = errors.New("provider not found or not enabled")
	ErrMalformedProfile  = errors.New("malformed provider profile payload")
	ErrMissingProviderID = errors.New("provider payload carries no subject identifier")
)
