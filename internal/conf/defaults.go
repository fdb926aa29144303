// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "MusicV")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "musicv.log")

	viper.SetDefault("audio.source", "sysdefault")
	viper.SetDefault("audio.samplerate", 16000)
	viper.SetDefault("audio.windowsize", 2048)
	viper.SetDefault("audio.hopsize", 512)
	viper.SetDefault("audio.fftsize", 2048)
	viper.SetDefault("audio.melbands", 64)
	viper.SetDefault("audio.mfcccoeffs", 13)

	viper.SetDefault("buffer.capacity", 8)

	viper.SetDefault("render.targetfps", 30)
	viper.SetDefault("render.width", 1280)
	viper.SetDefault("render.height", 720)
	viper.SetDefault("render.background", "#1a1a1a")

	viper.SetDefault("particles.poolsize", 800)
	viper.SetDefault("particles.emitrate", 100.0)
	viper.SetDefault("particles.sizemin", 2.0)
	viper.SetDefault("particles.sizemax", 6.0)
	viper.SetDefault("particles.speedmin", 20.0)
	viper.SetDefault("particles.speedmax", 80.0)
	viper.SetDefault("particles.gridcellsize", 32.0)

	viper.SetDefault("components.enabled", []string{"particles", "spectrum", "waveform", "beatpulse"})

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "musicv/events")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("export.enabled", false)
	viper.SetDefault("export.path", "features.json")
}
