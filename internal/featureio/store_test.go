package featureio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/features"
)

func sampleSequence() *features.Sequence {
	return &features.Sequence{
		SampleRate: 16000,
		WindowSize: 1024,
		HopSize:    256,
		Vectors: []*features.Vector{
			{
				Values: map[string]features.Value{
					"temporal.rms":     features.ScalarValue(0.1234567890123456),
					"frequency.mel":    features.VectorValue([]float64{0.5, 1e-10, math.Pi}),
					"rhythm.is_beat":   features.ScalarValue(1),
					"timbre.centroid":  features.ScalarValue(1234.5678),
				},
				Timestamp: 16 * time.Millisecond,
				FrameSeq:  0,
			},
			{
				Values: map[string]features.Value{
					"temporal.rms": features.ScalarValue(0.3),
				},
				Timestamp: 32 * time.Millisecond,
				FrameSeq:  1,
			},
		},
	}
}

func TestExportImportRoundTripIsExact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "features.json")
	original := sampleSequence()

	require.NoError(t, Export(path, original))

	loaded, err := Import(path)
	require.NoError(t, err)

	assert.Equal(t, original.SampleRate, loaded.SampleRate)
	assert.Equal(t, original.WindowSize, loaded.WindowSize)
	assert.Equal(t, original.HopSize, loaded.HopSize)
	require.Len(t, loaded.Vectors, len(original.Vectors))

	for i, want := range original.Vectors {
		got := loaded.Vectors[i]
		assert.Equal(t, want.Timestamp, got.Timestamp)
		assert.Equal(t, want.FrameSeq, got.FrameSeq)
		assert.Equal(t, want.Values, got.Values)
	}
}

func TestExportRejectsNilSequence(t *testing.T) {
	err := Export(filepath.Join(t.TempDir(), "features.json"), nil)
	assert.Error(t, err)
}

func TestImportRejectsMissingFile(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestImportRejectsCorruptContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Import(path)
	assert.Error(t, err)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "vectors": []}`), 0o644))

	_, err := Import(path)
	assert.Error(t, err)
}

func TestImportRejectsInvalidSizing(t *testing.T) {
	cases := map[string]string{
		"missing sizing": `{"version": 1, "vectors": []}`,
		"zero hop":       `{"version": 1, "sample_rate": 16000, "window_size": 1024, "hop_size": 0, "vectors": []}`,
		"negative rate":  `{"version": 1, "sample_rate": -1, "window_size": 1024, "hop_size": 256, "vectors": []}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "features.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := Import(path)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryPersistence))
		})
	}
}

func TestExportLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.json")

	require.NoError(t, Export(path, sampleSequence()))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
