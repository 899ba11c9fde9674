package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Build-time defaults, meant to be overridden via
//
//	go build -ldflags "-X .../internal/config.BuildSSID=mynet ..."
//
// mirroring how the firmware baked its credentials into the image. A
// config file on disk takes precedence over all three.
var (
	BuildSSID     = ""
	BuildPassword = ""
	BuildEndpoint = "https://backend.stadtreinigung.hamburg/kalender/abholtermine.ics?hnIds=44353"
)

// WifiConfig holds the credentials handed to the wireless station.
type WifiConfig struct {
	SSID     string `yaml:"ssid" json:"ssid"`
	Password string `yaml:"password" json:"-"`
	// Interface is the network interface observed for link and address
	// state, e.g. "wlan0".
	Interface string `yaml:"interface" json:"interface"`
}

// MQTTConfig describes the optional schedule publisher. An empty Broker
// disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Topic    string `yaml:"topic" json:"topic"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// IndicatorConfig names the GPIO pins driving the status LEDs. Empty
// pin names fall back to a log-only indicator.
type IndicatorConfig struct {
	ReadyPin string `yaml:"ready_pin" json:"ready_pin"`
	ErrorPin string `yaml:"error_pin" json:"error_pin"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Endpoint is the municipal calendar URL fetched each cycle.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// TLSInsecure disables certificate verification on the fetch,
	// matching devices without a CA store. Leave false unless the
	// endpoint's chain is broken.
	TLSInsecure bool `yaml:"tls_insecure" json:"tls_insecure"`

	// Wifi configures the supervised uplink.
	Wifi WifiConfig `yaml:"wifi" json:"wifi"`

	// RefreshCron is a cron-style schedule (e.g. "0 6 * * *") for
	// periodic refresh. Empty means fetch once and idle.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen is the HTTP listen address for the status API and the
	// calendar re-export. Empty disables the server.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	Indicator IndicatorConfig `yaml:"indicator" json:"indicator"`

	// BasicAuth, if non-nil, protects all HTTP endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration seeded from
// the build-time variables.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:    BuildEndpoint,
		TLSInsecure: false,
		Wifi: WifiConfig{
			SSID:      BuildSSID,
			Password:  BuildPassword,
			Interface: "wlan0",
		},
		RefreshCron: "",
		Listen:      "127.0.0.1:8080",
		LogLevel:    "info",
		MQTT: MQTTConfig{
			ClientID: "muellabfuhr-reminder",
			Topic:    "muellabfuhr/schedule",
		},
	}
}

// Normalize fills missing values with defaults so partially-filled
// configs from older versions still behave.
func (c *Config) Normalize() {
	if c.Endpoint == "" {
		c.Endpoint = BuildEndpoint
	}
	if c.Wifi.SSID == "" {
		c.Wifi.SSID = BuildSSID
	}
	if c.Wifi.Password == "" {
		c.Wifi.Password = BuildPassword
	}
	if c.Wifi.Interface == "" {
		c.Wifi.Interface = "wlan0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MQTT.Broker != "" {
		if c.MQTT.ClientID == "" {
			c.MQTT.ClientID = "muellabfuhr-reminder"
		}
		if c.MQTT.Topic == "" {
			c.MQTT.Topic = "muellabfuhr/schedule"
		}
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned, so a first run leaves a file the user can edit.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically: marshal to a temp file in
// the target directory, chmod 0600, rename over the destination.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".muellabfuhr-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
