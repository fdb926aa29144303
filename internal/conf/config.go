// config.go: settings struct for the musicv visualizer and functions to load
// them from a YAML config file. The loaded Settings value is an immutable
// snapshot: it is constructed once at startup and passed explicitly into
// every component, never consulted through a global accessor.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig contains settings for a log file.
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to log file
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of the node, also used as a prefix for log messages
	Log  LogConfig // main log settings
}

// AudioSettings contains settings for audio input and feature extraction.
type AudioSettings struct {
	Source     string // capture device to use for realtime mode ("sysdefault", device name or ID)
	SampleRate int    // sample rate used by the extraction pipeline in Hz
	WindowSize int    // analysis window size in samples
	HopSize    int    // hop between successive windows in samples
	FFTSize    int    // FFT length for spectral extractors
	MelBands   int    // number of mel filter bank bands
	MFCCCoeffs int    // number of MFCC coefficients
}

// BufferSettings contains settings for the feature stream buffer.
type BufferSettings struct {
	Capacity int // bounded capacity of the feature stream buffer
}

// RenderSettings contains settings for the render scheduler and surface.
type RenderSettings struct {
	TargetFPS  int    // target frame rate for the render loop
	Width      int    // surface width in pixels
	Height     int    // surface height in pixels
	Background string // background color as hex string
}

// ParticleSettings contains settings for the particle engine.
type ParticleSettings struct {
	PoolSize     int     // fixed particle pool capacity
	EmitRate     float64 // base particles emitted per second
	SizeMin      float64 // minimum spawn size
	SizeMax      float64 // maximum spawn size
	SpeedMin     float64 // minimum spawn speed
	SpeedMax     float64 // maximum spawn speed
	GridCellSize float64 // spatial grid cell size in pixels
}

// ComponentSettings lists the visual components activated at startup.
type ComponentSettings struct {
	Enabled []string // component names activated after registration
}

// MQTTSettings contains settings for optional MQTT event forwarding.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT event forwarding
	Broker   string // MQTT broker URL, e.g. tcp://localhost:1883
	Topic    string // topic events are published to
	Username string // MQTT username
	Password string // MQTT password
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable Prometheus telemetry endpoint
	Listen  string // listen address and port
}

// ExportSettings contains settings for feature sequence export.
type ExportSettings struct {
	Enabled bool   // true to export extracted features in file mode
	Path    string // path the feature container is written to
}

// Settings is the resolved configuration snapshot for one run.
type Settings struct {
	Debug bool // true to enable debug logging

	Main       MainSettings
	Audio      AudioSettings
	Buffer     BufferSettings
	Render     RenderSettings
	Particles  ParticleSettings
	Components ComponentSettings
	MQTT       MQTTSettings
	Telemetry  TelemetrySettings
	Export     ExportSettings
}

// Load reads the configuration file and returns the resolved settings
// snapshot. Configuration errors are fatal at setup.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !asConfigNotFound(err, &configFileNotFoundError) {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		return createDefaultConfig(configPaths[0])
	}

	return nil
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// createDefaultConfig writes the embedded default config file into the first
// config path and re-reads it.
func createDefaultConfig(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	defaultConfig, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if err := os.WriteFile(configFile, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the list of directories searched for the
// config file, in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "musicv"),
	}, nil
}
