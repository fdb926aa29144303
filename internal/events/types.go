// Package events provides a synchronous typed publish/subscribe bus used to
// notify modules of audio and visual state changes. Dispatch runs on the
// goroutine that calls Emit; re-entrant emission is permitted up to a bounded
// cascade depth.
package events

import (
	"time"
)

// Type identifies the kind of an event.
type Type string

const (
	AudioLoaded         Type = "audio_loaded"
	AudioPlaying        Type = "audio_playing"
	AudioPaused         Type = "audio_paused"
	AudioStopped        Type = "audio_stopped"
	FeaturesUpdated     Type = "audio_features_updated"
	BeatDetected        Type = "beat_detected"
	VisualTypeChanged   Type = "visual_type_changed"
	VisualConfigUpdated Type = "visual_config_updated"
	FrameRendered       Type = "frame_rendered"
	ExtractorFailure    Type = "extractor_failure"
	ParticleEvicted     Type = "particle_evicted"
	ErrorOccurred       Type = "error_occurred"
	InfoMessage         Type = "info_message"
)

// Event is a single notification with an opaque payload.
type Event struct {
	Type      Type
	Payload   map[string]any
	Timestamp time.Time
}

// New creates an event stamped with the current time.
func New(eventType Type, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Listener is a callback invoked synchronously on Emit.
type Listener func(Event)

// BusStats contains runtime statistics for monitoring.
type BusStats struct {
	EventsEmitted   uint64
	EventsDelivered uint64
	CascadesAborted uint64
	ListenerPanics  uint64
}
