// Package util provides utility functions for the catalog.
package util

import "github.com/google/uuid"

// GenerateUUID returns a random (v4) UUID string for new products and variants.
func GenerateUUID() string {
	return uuid.NewString()
}
