package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	apperrors "drawclass/internal/platform/errors"
)

// Marshal writes the dataset as a JSON object keyed by label, in label order.
func Marshal(d Dataset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range d.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(label)
		if err != nil {
			return nil, fmt.Errorf("encode label %q: %w", label, err)
		}
		payloads := d.samples[label]
		if payloads == nil {
			payloads = []string{}
		}
		values, err := json.Marshal(payloads)
		if err != nil {
			return nil, fmt.Errorf("encode samples of %q: %w", label, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Unmarshal parses the output of Marshal. Key order becomes label order.
// Every failure wraps apperrors.ErrMalformedImport.
func Unmarshal(raw []byte) (Dataset, error) {
	d, err := unmarshal(raw)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedImport, err)
	}
	return d, nil
}

func unmarshal(raw []byte) (Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return Dataset{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Dataset{}, errors.New("top level must be an object of label to samples")
	}
	d := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Dataset{}, err
		}
		label, _ := tok.(string)
		if err := ValidateLabel(label); err != nil {
			return Dataset{}, errors.New("empty category label")
		}
		if d.Has(label) {
			return Dataset{}, fmt.Errorf("duplicate category %q", label)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return Dataset{}, err
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return Dataset{}, fmt.Errorf("category %q has no sample list", label)
		}
		var payloads []string
		if err := json.Unmarshal(value, &payloads); err != nil {
			return Dataset{}, fmt.Errorf("category %q: samples must be strings", label)
		}
		if err := d.Declare(label); err != nil {
			return Dataset{}, err
		}
		for i, payload := range payloads {
			if err := d.Add(label, payload); err != nil {
				return Dataset{}, fmt.Errorf("category %q sample %d is empty", label, i)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return Dataset{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Dataset{}, errors.New("trailing data after dataset object")
	}
	return d, nil
}
