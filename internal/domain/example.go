package domain

import "fmt"

// Example is one labeled observation supplied by the upstream producer for
// inductive rule learning.
type Example struct {
	Attributes map[string]any `json:"attributes"`
	Label      string         `json:"label"`
}

func NewExample(attributes map[string]any, label string) (Example, error) {
	if label == "" {
		return Example{}, fmt.Errorf("%w: example has no label", ErrInvalidInput)
	}
	if len(attributes) == 0 {
		return Example{}, fmt.Errorf("%w: example has no attributes", ErrInvalidInput)
	}
	return Example{Attributes: attributes, Label: label}, nil
}
