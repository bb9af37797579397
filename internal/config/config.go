package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/enokida/padbridge/internal/input"
	"github.com/enokida/padbridge/internal/keymap"
)

// Config holds all daemon configuration.
type Config struct {
	DeviceName  string          `yaml:"device_name"`
	Log         LogConfig       `yaml:"log"`
	Input       InputConfig     `yaml:"input"`
	Keymap      map[int]string  `yaml:"keymap"`
	DebounceMs  int             `yaml:"debounce_ms"`
	TickHz      int             `yaml:"tick_hz"`
	Report      ReportConfig    `yaml:"report"`
	BLE         BLEConfig       `yaml:"ble"`
	Bond        BondConfig      `yaml:"bond"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Status      StatusConfig    `yaml:"status"`
	HeartbeatMs int             `yaml:"heartbeat_ms"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // "text" or "json"
}

// InputConfig selects and configures the controller driver.
type InputConfig struct {
	Driver   string         `yaml:"driver"` // "joystick", "gpio", or "keyboard"
	Device   string         `yaml:"device"` // joystick device node
	GPIO     GPIOConfig     `yaml:"gpio"`
	Keyboard KeyboardConfig `yaml:"keyboard"`
}

// GPIOConfig holds direct-wired switch settings. KeyPins[i] is the line
// offset for input channel i.
type GPIOConfig struct {
	Chip    string `yaml:"chip"`
	KeyPins []int  `yaml:"key_pins"`
	LampPin int    `yaml:"lamp_pin"` // -1 disables the lamp output
}

// KeyboardConfig holds desktop capture settings. Keys[i] is the key name
// for input channel i.
type KeyboardConfig struct {
	Keys []string `yaml:"keys"`
}

// ReportConfig holds report encoding settings.
type ReportConfig struct {
	MaxPressed int `yaml:"max_pressed"`
}

// BLEConfig holds radio settings.
type BLEConfig struct {
	AdvertisingIntervalMs int `yaml:"advertising_interval_ms"`
}

// BondConfig holds bond persistence settings.
type BondConfig struct {
	Path   string `yaml:"path"`
	Secret string `yaml:"secret"`
}

// TelemetryConfig holds MQTT settings. An empty broker disables telemetry.
type TelemetryConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	Queue       int    `yaml:"queue"`
}

// StatusConfig holds the status page settings. An empty addr disables it.
type StatusConfig struct {
	HTTP string `yaml:"http"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "padbridge")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the default state directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "padbridge")
}

// Default returns a Config with the stock controller values.
func Default() *Config {
	bindings := make(map[int]string, keymap.KeyCount)
	for ch, key := range keymap.DefaultBindings() {
		bindings[ch] = key.String()
	}

	return &Config{
		DeviceName: "IIDX Entry model",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Input: InputConfig{
			Driver: "joystick",
			Device: "/dev/input/js0",
			GPIO: GPIOConfig{
				Chip:    "gpiochip0",
				LampPin: -1,
			},
		},
		Keymap:     bindings,
		DebounceMs: 5,
		TickHz:     125,
		Report: ReportConfig{
			MaxPressed: 8,
		},
		BLE: BLEConfig{
			AdvertisingIntervalMs: 100,
		},
		Bond: BondConfig{
			Path: filepath.Join(DefaultDataDir(), "bonds.dat"),
		},
		Telemetry: TelemetryConfig{
			TopicPrefix: "padbridge",
			Queue:       256,
		},
		HeartbeatMs: 30000,
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()

	// yaml merges into a non-nil map, which would mix user bindings with
	// the defaults. A keymap in the file replaces the default wholesale.
	var probe struct {
		Keymap map[int]string `yaml:"keymap"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if probe.Keymap != nil {
		cfg.Keymap = nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Bond.Path = expandTilde(cfg.Bond.Path)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("device_name must not be empty")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}

	switch c.Input.Driver {
	case "joystick":
		if c.Input.Device == "" {
			return fmt.Errorf("input.device must not be empty for the joystick driver")
		}
	case "gpio":
		if c.Input.GPIO.Chip == "" {
			return fmt.Errorf("input.gpio.chip must not be empty for the gpio driver")
		}
		if len(c.Input.GPIO.KeyPins) == 0 {
			return fmt.Errorf("input.gpio.key_pins must not be empty for the gpio driver")
		}
		if len(c.Input.GPIO.KeyPins) > input.MaxChannels {
			return fmt.Errorf("input.gpio.key_pins supports at most %d channels, got %d",
				input.MaxChannels, len(c.Input.GPIO.KeyPins))
		}
	case "keyboard":
		if len(c.Input.Keyboard.Keys) == 0 {
			return fmt.Errorf("input.keyboard.keys must not be empty for the keyboard driver")
		}
		if len(c.Input.Keyboard.Keys) > input.MaxChannels {
			return fmt.Errorf("input.keyboard.keys supports at most %d channels, got %d",
				input.MaxChannels, len(c.Input.Keyboard.Keys))
		}
	default:
		return fmt.Errorf("input.driver must be \"joystick\", \"gpio\", or \"keyboard\", got %q", c.Input.Driver)
	}

	if _, err := c.KeymapBindings(); err != nil {
		return err
	}

	if c.DebounceMs < 0 || c.DebounceMs > 100 {
		return fmt.Errorf("debounce_ms must be in [0, 100], got %d", c.DebounceMs)
	}

	if c.TickHz < 100 || c.TickHz > 240 {
		return fmt.Errorf("tick_hz must be in [100, 240], got %d", c.TickHz)
	}

	if c.Report.MaxPressed < 1 || c.Report.MaxPressed > keymap.KeyCount {
		return fmt.Errorf("report.max_pressed must be in [1, %d], got %d",
			keymap.KeyCount, c.Report.MaxPressed)
	}

	if c.BLE.AdvertisingIntervalMs < 20 || c.BLE.AdvertisingIntervalMs > 10000 {
		return fmt.Errorf("ble.advertising_interval_ms must be in [20, 10000], got %d",
			c.BLE.AdvertisingIntervalMs)
	}

	if c.Bond.Path == "" {
		return fmt.Errorf("bond.path must not be empty")
	}

	if c.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms must be >= 0, got %d", c.HeartbeatMs)
	}

	return nil
}

// KeymapBindings parses the channel bindings into a keymap.
func (c *Config) KeymapBindings() (*keymap.Map, error) {
	bindings := make(map[int]keymap.Key, len(c.Keymap))
	for ch, name := range c.Keymap {
		key, err := keymap.ParseKey(name)
		if err != nil {
			return nil, fmt.Errorf("keymap channel %d: %w", ch, err)
		}
		bindings[ch] = key
	}
	km, err := keymap.New(bindings)
	if err != nil {
		return nil, err
	}
	return km, nil
}

// DebounceInterval returns the debounce window as a duration.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// TickPeriod returns the report loop period.
func (c *Config) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.TickHz)
}

// AdvertisingInterval returns the BLE advertising interval as a duration.
func (c *Config) AdvertisingInterval() time.Duration {
	return time.Duration(c.BLE.AdvertisingIntervalMs) * time.Millisecond
}

// HeartbeatInterval returns the telemetry heartbeat period; zero disables it.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// WriteDefault writes a commented default config to the default path,
// creating the directory if needed. If the file already exists it is left
// untouched and ("", nil) is returned.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if path == "" {
		return "", fmt.Errorf("cannot determine config path")
	}
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshaling default config: %w", err)
	}

	header := "# padbridge configuration.\n" +
		"# Keymap channels are the controller's raw input indexes; keys are\n" +
		"# B1-B7 (play keys) and E1-E4 (option buttons).\n"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
