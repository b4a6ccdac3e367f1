package domain

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FingerprintDim is the dimensionality of a case's attribute fingerprint
// vector stored for nearest-neighbor retrieval.
const FingerprintDim = 64

// Case is a stored experience for analogical transfer: a named bag of
// attributes, optionally tagged with the outcome it led to.
type Case struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
	Outcome    string         `json:"outcome,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func NewCase(name string, attributes map[string]any) (*Case, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: case name is empty", ErrInvalidInput)
	}
	if len(attributes) == 0 {
		return nil, fmt.Errorf("%w: case %q has no attributes", ErrInvalidInput, name)
	}
	return &Case{
		ID:         uuid.New(),
		Name:       name,
		Attributes: attributes,
		CreatedAt:  time.Now(),
	}, nil
}

// CaseWithScore pairs a retrieved case with its similarity score.
type CaseWithScore struct {
	Case
	Score float64 `json:"score"`
}

// Fingerprint hashes the case's attribute pairs into a fixed-size feature
// vector. The encoding is deterministic, so equal attribute maps always map
// to the same vector and nearest-neighbor distance approximates attribute
// overlap.
func (c *Case) Fingerprint() []float32 {
	return AttributeFingerprint(c.Attributes)
}

// AttributeFingerprint is the feature hashing shared by stored cases and
// query targets.
func AttributeFingerprint(attrs map[string]any) []float32 {
	vec := make([]float32, FingerprintDim)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h := fnv.New32a()
		fmt.Fprintf(h, "%s=%v", k, attrs[k])
		sum := h.Sum32()
		idx := int(sum % FingerprintDim)
		// Signed hashing keeps colliding features from always reinforcing.
		if sum&0x80000000 != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	return vec
}
