package domain_test

import (
	"errors"
	"testing"

	"drawclass/internal/modules/dataset/domain"
	apperrors "drawclass/internal/platform/errors"
)

func TestRoundTripPreservesOrderAndContent(t *testing.T) {
	t.Parallel()
	cases := map[string]func(t *testing.T) domain.Dataset{
		"empty": func(*testing.T) domain.Dataset { return domain.New() },
		"special labels": func(t *testing.T) domain.Dataset {
			d := domain.New()
			mustAdd(t, &d, `Zebra "striped"`, "data:image/png;base64,AAA=")
			mustAdd(t, &d, "ñandú/ü\\n", "data:image/jpeg;base64,BBB=")
			mustAdd(t, &d, `Zebra "striped"`, "data:image/png;base64,CCC=")
			mustAdd(t, &d, "<script>&", "x")
			return d
		},
		"declared without samples": func(t *testing.T) domain.Dataset {
			d := domain.New()
			mustAdd(t, &d, "Sol", "p1")
			if err := d.Declare("Casa"); err != nil {
				t.Fatalf("declare: %v", err)
			}
			return d
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			original := build(t)
			raw, err := domain.Marshal(original)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			decoded, err := domain.Unmarshal(raw)
			if err != nil {
				t.Fatalf("unmarshal %s: %v", raw, err)
			}
			if !decoded.Equal(original) {
				t.Fatalf("round trip changed dataset: %s", raw)
			}
		})
	}
}

func TestUnmarshalKeepsKeyOrder(t *testing.T) {
	t.Parallel()
	d, err := domain.Unmarshal([]byte(`{"Sol":["a"],"Gato":["b","c"],"Casa":[]}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	labels := d.Labels()
	if len(labels) != 3 || labels[0] != "Sol" || labels[1] != "Gato" || labels[2] != "Casa" {
		t.Fatalf("unexpected label order: %v", labels)
	}
	nonEmpty := d.NonEmpty()
	if len(nonEmpty) != 2 || nonEmpty[1] != "Gato" {
		t.Fatalf("unexpected non-empty labels: %v", nonEmpty)
	}
	if d.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", d.Len())
	}
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		``,
		`[]`,
		`{"a":"b"}`,
		`{"a":[1]}`,
		`{"a":null}`,
		`{"a":[null]}`,
		`{"a":[""]}`,
		`{"":["x"]}`,
		`{"a":["x"],"a":["y"]}`,
		`{"a":["x"]`,
		`{"a":["x"]} {}`,
	} {
		if _, err := domain.Unmarshal([]byte(raw)); !errors.Is(err, apperrors.ErrMalformedImport) {
			t.Fatalf("expected malformed import for %q, got %v", raw, err)
		}
	}
}

func TestRecentAndClone(t *testing.T) {
	t.Parallel()
	d := domain.New()
	for _, p := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		mustAdd(t, &d, "Gato", p)
	}
	recent := d.Recent("Gato", 6)
	if len(recent) != 6 || recent[0] != "3" || recent[5] != "8" {
		t.Fatalf("unexpected recent window: %v", recent)
	}
	clone := d.Clone()
	mustAdd(t, &d, "Gato", "9")
	if clone.Len() != 8 {
		t.Fatalf("clone must not observe later writes, got %d samples", clone.Len())
	}
	if err := d.Add(" ", "x"); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for blank label, got %v", err)
	}
}

func mustAdd(t *testing.T, d *domain.Dataset, label, payload string) {
	t.Helper()
	if err := d.Add(label, payload); err != nil {
		t.Fatalf("add %q: %v", label, err)
	}
}
