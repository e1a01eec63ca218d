package repository

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// idLength matches the 20-character document ids hosted stores hand out.
const idLength = 20

// NewID returns an opaque, URL-safe record id. Record ids are assigned by
// the store on create and never change afterwards.
func NewID() (string, error) {
	id, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id, nil
}
