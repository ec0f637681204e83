package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/schollz/pianotube/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. PIANOTUBE_API_BASE_URL
const EnvPrefix = "PIANOTUBE"

type Config struct {
	API       APIConfig
	Poll      PollConfig
	Playback  PlaybackConfig
	Log       LogConfig
	Output    OutputConfig
	DevServer DevServerConfig

	File string // config file that was read, if any
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PollConfig struct {
	Interval time.Duration
}

type PlaybackConfig struct {
	MIDIOut   string // substring of an output port name
	OSC       string // host:port
	FrameRate int
}

type LogConfig struct {
	File string
}

type OutputConfig struct {
	Dir string // where downloads are saved
}

type DevServerConfig struct {
	Addr          string
	StageDuration time.Duration
	MIDIFile      string
}

// flagKeys maps command line flags onto config keys
var flagKeys = map[string]string{
	"api":      "api.base_url",
	"timeout":  "api.timeout",
	"interval": "poll.interval",
	"midi-out": "playback.midi_out",
	"osc":      "playback.osc",
	"fps":      "playback.frame_rate",
	"log":      "log.file",
	"out":      "output.dir",
	"addr":     "devserver.addr",
	"stage":    "devserver.stage_duration",
	"midi":     "devserver.midi_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("poll.interval", 2*time.Second)
	v.SetDefault("playback.midi_out", "")
	v.SetDefault("playback.osc", "")
	v.SetDefault("playback.frame_rate", 30)
	v.SetDefault("log.file", "")
	v.SetDefault("output.dir", ".")
	v.SetDefault("devserver.addr", "localhost:8000")
	v.SetDefault("devserver.stage_duration", 1500*time.Millisecond)
	v.SetDefault("devserver.midi_file", "")
}

// Load merges defaults, the optional config file, PIANOTUBE_* variables
// and flags, in increasing precedence. configFile may be empty, in which
// case pianotube.{yaml,toml,json} is searched in . and the user config
// folder. flags may be nil.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pianotube")
		v.AddConfigPath(".")
		v.AddConfigPath(storage.DefaultFolder())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL: v.GetString("api.base_url"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Poll: PollConfig{
			Interval: v.GetDuration("poll.interval"),
		},
		Playback: PlaybackConfig{
			MIDIOut:   v.GetString("playback.midi_out"),
			OSC:       v.GetString("playback.osc"),
			FrameRate: v.GetInt("playback.frame_rate"),
		},
		Log: LogConfig{
			File: v.GetString("log.file"),
		},
		Output: OutputConfig{
			Dir: v.GetString("output.dir"),
		},
		DevServer: DevServerConfig{
			Addr:          v.GetString("devserver.addr"),
			StageDuration: v.GetDuration("devserver.stage_duration"),
			MIDIFile:      v.GetString("devserver.midi_file"),
		},
		File: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a session cannot run without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Playback.FrameRate < 1 || c.Playback.FrameRate > 240 {
		return fmt.Errorf("playback.frame_rate must be between 1 and 240, got %d", c.Playback.FrameRate)
	}
	if c.DevServer.StageDuration < 0 {
		return fmt.Errorf("devserver.stage_duration must not be negative, got %s", c.DevServer.StageDuration)
	}
	return nil
}

// FrameInterval is the time between transport ticks
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Playback.FrameRate)
}
