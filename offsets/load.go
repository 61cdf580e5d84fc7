package offsets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crystalix007/cafe/segments"
)

// ErrInvalidVector is returned when a textual offset vector cannot be parsed.
var ErrInvalidVector = errors.New("invalid offset vector")

// timeSlideFile is the YAML form of a list of offset vectors, either a bare
// sequence of mappings or a document with a "time_slides" key.
//
//	time_slides:
//	  - {H1: 0, L1: 0}
//	  - {H1: 0, L1: 5.5}
type timeSlideFile struct {
	TimeSlides []map[string]string `yaml:"time_slides"`
}

// Load reads offset vectors, in seconds, from YAML.
func Load(r io.Reader) ([]Vector, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read time slides: %w", err)
	}

	var node yaml.Node

	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode time slides: %w", err)
	}

	var raw []map[string]string

	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		err = node.Content[0].Decode(&raw)
	} else {
		var file timeSlideFile

		err = node.Decode(&file)
		raw = file.TimeSlides
	}

	if err != nil {
		return nil, fmt.Errorf("decode time slides: %w", err)
	}

	vectors := make([]Vector, 0, len(raw))

	for i, entry := range raw {
		v := make(Vector, len(entry))

		for instrument, value := range entry {
			offset, parseErr := segments.ParseTime(value)
			if parseErr != nil {
				return nil, fmt.Errorf("time slide %d, %s: %w", i, instrument, parseErr)
			}

			v[instrument] = offset
		}

		vectors = append(vectors, v)
	}

	if err := Validate(vectors); err != nil {
		return nil, err
	}

	return vectors, nil
}

// LoadFile reads offset vectors from the YAML file at path.
func LoadFile(path string) ([]Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open time slides: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Parse reads a single vector written as "H1=0,L1=5.5".
func Parse(s string) (Vector, error) {
	v := make(Vector)

	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		instrument, value, ok := strings.Cut(field, "=")
		if !ok || strings.TrimSpace(instrument) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVector, field)
		}

		offset, err := segments.ParseTime(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidVector, field, err)
		}

		v[strings.TrimSpace(instrument)] = offset
	}

	if len(v) == 0 {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidVector, s, ErrEmptyVector)
	}

	return v, nil
}
