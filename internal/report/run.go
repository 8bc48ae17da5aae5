package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainOutcomes separates outcome-vector digests from any other SHA-256
// use. The version suffix allows a future encoding change.
const DomainOutcomes = "hartcheck/outcomes/v1"

// Outcome statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Outcome is the result of one catalog case.
type Outcome struct {
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	Component string   `json:"component"`
	Status    string   `json:"status"`
	Reason    string   `json:"reason,omitempty"`
	Cause     string   `json:"cause,omitempty"`
	Failures  []string `json:"failures,omitempty"`
}

// Run is one execution of the catalog against one device.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Profile   string    `json:"profile"`
	Device    string    `json:"device"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Total     int       `json:"total"`
	Aborted   string    `json:"aborted,omitempty"`
	Digest    string    `json:"digest"`
	Outcomes  []Outcome `json:"outcomes"`
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. It panics if the random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Vector returns the canonical form of the outcome vector: index, name and
// status of every case. Failure details are not part of it.
func Vector(outcomes []Outcome) []any {
	vec := make([]any, len(outcomes))
	for i, o := range outcomes {
		vec[i] = map[string]any{
			"index":  o.Index,
			"name":   o.Name,
			"status": o.Status,
		}
	}
	return vec
}

// Digest computes SHA256(domain || 0x00 || canonical(vector)).
func Digest(outcomes []Outcome) (string, error) {
	canonical, err := MarshalCanonical(Vector(outcomes))
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainOutcomes))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Seal fills in the counts and digest of r from its outcomes.
func (r *Run) Seal() error {
	r.Passed, r.Failed, r.Skipped = 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusPassed:
			r.Passed++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		default:
			return fmt.Errorf("case %d (%s): unknown status %q", o.Index, o.Name, o.Status)
		}
	}
	r.Total = r.Passed + r.Failed
	digest, err := Digest(r.Outcomes)
	if err != nil {
		return err
	}
	r.Digest = digest
	return nil
}

// Canonical returns the canonical JSON of the whole run, used for golden
// comparison. StartedAt is encoded as RFC 3339 in UTC.
func (r *Run) Canonical() ([]byte, error) {
	outcomes := make([]any, len(r.Outcomes))
	for i, o := range r.Outcomes {
		m := map[string]any{
			"index":     o.Index,
			"name":      o.Name,
			"component": o.Component,
			"status":    o.Status,
		}
		if o.Reason != "" {
			m["reason"] = o.Reason
		}
		if o.Cause != "" {
			m["cause"] = o.Cause
		}
		if len(o.Failures) > 0 {
			m["failures"] = o.Failures
		}
		outcomes[i] = m
	}
	obj := map[string]any{
		"id":         r.ID,
		"started_at": r.StartedAt.UTC().Format(time.RFC3339),
		"profile":    r.Profile,
		"device":     r.Device,
		"passed":     r.Passed,
		"failed":     r.Failed,
		"skipped":    r.Skipped,
		"total":      r.Total,
		"digest":     r.Digest,
		"outcomes":   outcomes,
	}
	if r.Aborted != "" {
		obj["aborted"] = r.Aborted
	}
	return MarshalCanonical(obj)
}
