package domain

import (
	"fmt"
	"strings"

	apperrors "drawclass/internal/platform/errors"
)

// Dataset maps category labels to their captured payloads. Labels keep the
// order in which they first appeared; payloads keep capture order.
type Dataset struct {
	labels  []string
	samples map[string][]string
}

type CategoryCount struct {
	Label string
	Count int
}

func New() Dataset {
	return Dataset{samples: map[string][]string{}}
}

func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: category label is required", apperrors.ErrInvalidInput)
	}
	return nil
}

func ValidatePayload(payload string) error {
	if payload == "" {
		return fmt.Errorf("%w: sample payload is empty", apperrors.ErrInvalidInput)
	}
	return nil
}

// Declare registers label without samples. Declaring a known label is a no-op.
func (d *Dataset) Declare(label string) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	if d.samples == nil {
		d.samples = map[string][]string{}
	}
	if _, ok := d.samples[label]; !ok {
		d.labels = append(d.labels, label)
		d.samples[label] = nil
	}
	return nil
}

func (d *Dataset) Add(label, payload string) error {
	if err := ValidatePayload(payload); err != nil {
		return err
	}
	if err := d.Declare(label); err != nil {
		return err
	}
	d.samples[label] = append(d.samples[label], payload)
	return nil
}

// Labels returns every label, including ones without samples.
func (d Dataset) Labels() []string {
	return append([]string(nil), d.labels...)
}

// NonEmpty returns the labels that have at least one sample.
func (d Dataset) NonEmpty() []string {
	out := make([]string, 0, len(d.labels))
	for _, label := range d.labels {
		if len(d.samples[label]) > 0 {
			out = append(out, label)
		}
	}
	return out
}

func (d Dataset) Has(label string) bool {
	_, ok := d.samples[label]
	return ok
}

func (d Dataset) Samples(label string) []string {
	return append([]string(nil), d.samples[label]...)
}

// Recent returns up to n of the latest payloads for label, oldest first.
func (d Dataset) Recent(label string, n int) []string {
	all := d.samples[label]
	if n <= 0 {
		return nil
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]string(nil), all...)
}

func (d Dataset) Counts() []CategoryCount {
	out := make([]CategoryCount, 0, len(d.labels))
	for _, label := range d.labels {
		out = append(out, CategoryCount{Label: label, Count: len(d.samples[label])})
	}
	return out
}

// Len is the total number of samples.
func (d Dataset) Len() int {
	total := 0
	for _, payloads := range d.samples {
		total += len(payloads)
	}
	return total
}

func (d Dataset) Clone() Dataset {
	out := Dataset{labels: append([]string(nil), d.labels...), samples: make(map[string][]string, len(d.samples))}
	for label, payloads := range d.samples {
		out.samples[label] = append([]string(nil), payloads...)
	}
	return out
}

func (d Dataset) Equal(other Dataset) bool {
	if len(d.labels) != len(other.labels) {
		return false
	}
	for i, label := range d.labels {
		if other.labels[i] != label {
			return false
		}
		a, b := d.samples[label], other.samples[label]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}
