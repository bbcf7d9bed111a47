// Package config loads the small set of process-wide knobs oxyhost needs at
// startup (asset root path, frame pacing, present mode, MSAA sample count,
// worker-pool size) from a TOML file and/or the environment, the way the
// teacher's EngineBuilderOption set configures an in-process Engine — here
// externalized so the host binary can be configured without a recompile.
package config

import (
	"fmt"
	"strings"

	"github.com/oxy-forge/engine/frame"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/spf13/viper"
)

// Config is the fully resolved engine startup configuration.
type Config struct {
	// AssetRoot is the single filesystem path the asset registry watches and
	// resolves relative asset paths against.
	AssetRoot string `mapstructure:"asset_root"`

	// FramesInFlight is the configured frames-in-flight count. It is loaded
	// but not passed to the frame driver, which always uses
	// gpu.MaxFramesInFlight.
	FramesInFlight uint32 `mapstructure:"frames_in_flight"`

	// PresentMode names the swapchain present mode: "fifo", "immediate",
	// "mailbox", or "fifo_relaxed".
	PresentMode string `mapstructure:"present_mode"`

	// SampleCount is the MSAA sample count the frame driver's render targets
	// are created with. 1 disables multisampling.
	SampleCount uint32 `mapstructure:"sample_count"`

	// WorkerPoolSize is the job system's fixed worker-pool size.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`

	// WindowWidth and WindowHeight size the host window at startup.
	WindowWidth  int `mapstructure:"window_width"`
	WindowHeight int `mapstructure:"window_height"`
}

// Defaults mirrors the teacher's NewEngine zero-value defaults (60hz tick,
// uncapped render, FIFO present) generalized to the knobs this package owns.
func Defaults() Config {
	return Config{
		AssetRoot:      "./assets",
		FramesInFlight: 2,
		PresentMode:    "fifo",
		SampleCount:    1,
		WorkerPoolSize: 4,
		WindowWidth:    1280,
		WindowHeight:   720,
	}
}

// Load reads configuration from path (a TOML file; may be empty to skip
// file loading) layered under environment variables prefixed OXYHOST_ (e.g.
// OXYHOST_ASSET_ROOT), layered over Defaults().
func Load(path string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("oxyhost")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("asset_root", cfg.AssetRoot)
	v.SetDefault("frames_in_flight", cfg.FramesInFlight)
	v.SetDefault("present_mode", cfg.PresentMode)
	v.SetDefault("sample_count", cfg.SampleCount)
	v.SetDefault("worker_pool_size", cfg.WorkerPoolSize)
	v.SetDefault("window_width", cfg.WindowWidth)
	v.SetDefault("window_height", cfg.WindowHeight)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.FramesInFlight == 0 {
		cfg.FramesInFlight = 1
	}
	if cfg.SampleCount == 0 {
		cfg.SampleCount = 1
	}
	if cfg.WorkerPoolSize < 1 {
		cfg.WorkerPoolSize = 1
	}

	return cfg, nil
}

// WGPUPresentMode resolves PresentMode to the wgpu enum value frame.Driver
// expects, falling back to FIFO for an unrecognized name.
func (c Config) WGPUPresentMode() wgpu.PresentMode {
	switch strings.ToLower(c.PresentMode) {
	case "immediate":
		return wgpu.PresentModeImmediate
	case "mailbox":
		return wgpu.PresentModeMailbox
	case "fifo_relaxed":
		return wgpu.PresentModeFifoRelaxed
	default:
		return wgpu.PresentModeFifo
	}
}

// DriverOption adapts this configuration into a frame.Option wiring the
// present mode through to frame.NewDriver.
func (c Config) DriverOption() frame.Option {
	return frame.WithPresentMode(c.WGPUPresentMode())
}
