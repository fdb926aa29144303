package features

// Requirements declares the window sizing an extractor needs. A zero field
// means the extractor accepts whatever the pipeline is configured with.
type Requirements struct {
	WindowSize int // required analysis window size in samples
	HopSize    int // required hop between windows in samples
}

// Extractor is a named unit computing a subset of a feature vector's keys
// from one audio window. Extractors may keep state between windows (flux,
// onset history); the pipeline calls them sequentially in registration
// order, never concurrently.
type Extractor interface {
	// Name returns the unique extractor name
	Name() string

	// Requirements returns the declared input requirements
	Requirements() Requirements

	// OutputKeys returns the set of keys this extractor produces
	OutputKeys() []string

	// Extract computes feature values for one window of samples
	Extract(samples []float64, sampleRate int) (map[string]Value, error)
}
