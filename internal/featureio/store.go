// Package featureio persists extracted feature sequences to disk so repeated
// visualization of the same file can skip extraction.
package featureio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/features"
)

// FormatVersion identifies the on-disk container layout.
const FormatVersion = 1

// container is the serialized form of a feature sequence. JSON keeps the
// float64 values exact across a round trip.
type container struct {
	Version    int                `json:"version"`
	Created    time.Time          `json:"created"`
	SampleRate int                `json:"sample_rate"`
	WindowSize int                `json:"window_size"`
	HopSize    int                `json:"hop_size"`
	Vectors    []*features.Vector `json:"vectors"`
}

// Export writes the sequence to path, creating parent directories as needed.
// The write goes through a temporary file and rename so a crash cannot leave
// a truncated container behind.
func Export(path string, seq *features.Sequence) error {
	if seq == nil {
		return errors.Newf("nothing to export: sequence is nil").
			Component("featureio").
			Category(errors.CategoryValidation).
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(fmt.Errorf("creating export directory: %w", err)).
			Component("featureio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	data, err := json.MarshalIndent(container{
		Version:    FormatVersion,
		Created:    time.Now().UTC(),
		SampleRate: seq.SampleRate,
		WindowSize: seq.WindowSize,
		HopSize:    seq.HopSize,
		Vectors:    seq.Vectors,
	}, "", "  ")
	if err != nil {
		return errors.New(fmt.Errorf("encoding features: %w", err)).
			Component("featureio").
			Category(errors.CategoryPersistence).
			Build()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.New(fmt.Errorf("writing features: %w", err)).
			Component("featureio").
			Category(errors.CategoryFileIO).
			Context("path", tmp).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.New(fmt.Errorf("renaming features file: %w", err)).
			Component("featureio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	return nil
}

// Import reads a previously exported sequence from path.
func Import(path string) (*features.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("reading features: %w", err)).
			Component("featureio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var c container
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.New(fmt.Errorf("decoding features: %w", err)).
			Component("featureio").
			Category(errors.CategoryPersistence).
			Context("path", path).
			Build()
	}

	if c.Version != FormatVersion {
		return nil, errors.Newf("unsupported features file version %d, want %d", c.Version, FormatVersion).
			Component("featureio").
			Category(errors.CategoryPersistence).
			Context("path", path).
			Build()
	}

	// Playback paces itself from these, so zero or negative sizing would
	// poison every downstream duration calculation.
	if c.SampleRate <= 0 || c.WindowSize <= 0 || c.HopSize <= 0 {
		return nil, errors.Newf("features file has invalid sizing: sample_rate=%d window_size=%d hop_size=%d",
			c.SampleRate, c.WindowSize, c.HopSize).
			Component("featureio").
			Category(errors.CategoryPersistence).
			Context("path", path).
			Build()
	}

	return &features.Sequence{
		Vectors:    c.Vectors,
		SampleRate: c.SampleRate,
		WindowSize: c.WindowSize,
		HopSize:    c.HopSize,
	}, nil
}
