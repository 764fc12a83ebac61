// Package config handles application configuration loading and management.
//
// Only the ambient layer is configurable here: window, asset lookup, debug
// overlay and logging. Scene constants (ground size, spawn point, camera
// orbit, locomotion tuning) are fixed in the packages that use them.
package config

// Config holds all application settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Assets   AssetsConfig   `yaml:"assets"`
	Debug    DebugConfig    `yaml:"debug"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// AssetsConfig controls where asset files are resolved from.
type AssetsConfig struct {
	Roots []string `yaml:"roots"` // Directories searched last-to-first
	Watch bool     `yaml:"watch"` // Drop cached files when they change on disk
}

// DebugConfig holds diagnostic settings.
type DebugConfig struct {
	Overlay       bool   `yaml:"overlay"`
	ScreenshotDir string `yaml:"screenshot_dir"` // F12 captures
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Title:      "charscene",
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Assets: AssetsConfig{
			Roots: []string{"."},
			Watch: false,
		},
		Debug: DebugConfig{
			Overlay:       true,
			ScreenshotDir: "screenshots",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
