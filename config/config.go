// Copyright 2021 Converter Systems LLC. All rights reserved.

// Package config loads the settings of the uahelper command from a YAML file, a .env file and
// UAHELPER_* environment variables, in increasing order of precedence.
package config

import (
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/awcullen/uahelper/client"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables that override the file.
const EnvPrefix = "UAHELPER_"

// Config holds the settings of the command.
type Config struct {
	Endpoint                string               `yaml:"endpoint"`
	Security                bool                 `yaml:"security"`
	UserName                string               `yaml:"username"`
	Password                string               `yaml:"password"`
	ApplicationName         string               `yaml:"application_name"`
	SessionTimeout          time.Duration        `yaml:"session_timeout"`
	OperationTimeout        time.Duration        `yaml:"operation_timeout"`
	KeepAliveInterval       time.Duration        `yaml:"keepalive_interval"`
	ReconnectPeriod         time.Duration        `yaml:"reconnect_period"`
	TrustedCertificatesFile string               `yaml:"trusted_certificates_file"`
	RejectUntrusted         bool                 `yaml:"reject_untrusted"`
	SuppressHostNameInvalid bool                 `yaml:"suppress_hostname_invalid"`
	Log                     LogConfig            `yaml:"log"`
	Metrics                 MetricsConfig        `yaml:"metrics"`
	NATS                    NATSConfig           `yaml:"nats"`
	Subscriptions           []SubscriptionConfig `yaml:"subscriptions"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// MetricsConfig configures the prometheus endpoint. Disabled if Listen is empty.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// NATSConfig configures the notification relay. Disabled if URL is empty.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// SubscriptionConfig names a set of nodes to subscribe to.
type SubscriptionConfig struct {
	Key   string   `yaml:"key"`
	Nodes []string `yaml:"nodes"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Endpoint:          "opc.tcp://127.0.0.1:48010",
		ApplicationName:   "uahelper",
		SessionTimeout:    2 * time.Minute,
		OperationTimeout:  6000 * time.Second,
		KeepAliveInterval: 5 * time.Second,
		ReconnectPeriod:   10 * time.Second,
		Log:               LogConfig{Level: "info", Format: "console"},
		Metrics:           MetricsConfig{Path: "/metrics"},
		NATS:              NATSConfig{SubjectPrefix: "uahelper"},
	}
}

// Load reads the YAML file at path, if not empty, over the defaults, then applies the environment.
// Variables from the env files, or from ".env" if none are given, are added to the environment
// unless already set. A missing ".env" is ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "load .env")
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Wrap(err, "load env files")
	}

	c := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open config")
		}
		defer f.Close()
		if err := c.Decode(f); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Decode reads YAML settings over the current values.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return errors.Wrap(err, "decode config")
	}
	return nil
}

// ApplyEnv overrides settings with the UAHELPER_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("ENDPOINT", &c.Endpoint)
	str("USERNAME", &c.UserName)
	str("PASSWORD", &c.Password)
	str("APPLICATION_NAME", &c.ApplicationName)
	str("TRUSTED_CERTIFICATES_FILE", &c.TrustedCertificatesFile)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("METRICS_LISTEN", &c.Metrics.Listen)
	str("NATS_URL", &c.NATS.URL)
	str("NATS_SUBJECT_PREFIX", &c.NATS.SubjectPrefix)

	for name, dst := range map[string]*bool{
		"SECURITY":                  &c.Security,
		"REJECT_UNTRUSTED":          &c.RejectUntrusted,
		"SUPPRESS_HOSTNAME_INVALID": &c.SuppressHostNameInvalid,
	} {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "parse %s%s", EnvPrefix, name)
			}
			*dst = b
		}
	}
	for name, dst := range map[string]*time.Duration{
		"SESSION_TIMEOUT":    &c.SessionTimeout,
		"OPERATION_TIMEOUT":  &c.OperationTimeout,
		"KEEPALIVE_INTERVAL": &c.KeepAliveInterval,
		"RECONNECT_PERIOD":   &c.ReconnectPeriod,
	} {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "parse %s%s", EnvPrefix, name)
			}
			*dst = d
		}
	}
	return nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if !strings.HasPrefix(c.Endpoint, "opc.tcp://") {
		return errors.Errorf("endpoint %q must use the opc.tcp scheme", c.Endpoint)
	}
	if c.Password != "" && c.UserName == "" {
		return errors.New("password is set without username")
	}
	for name, d := range map[string]time.Duration{
		"session_timeout":    c.SessionTimeout,
		"operation_timeout":  c.OperationTimeout,
		"keepalive_interval": c.KeepAliveInterval,
		"reconnect_period":   c.ReconnectPeriod,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("log format must be console or json, got %q", c.Log.Format)
	}
	keys := make(map[string]bool, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		if s.Key == "" {
			return errors.New("subscription key is required")
		}
		if keys[s.Key] {
			return errors.Errorf("duplicate subscription key %q", s.Key)
		}
		keys[s.Key] = true
		if len(s.Nodes) == 0 {
			return errors.Errorf("subscription %q has no nodes", s.Key)
		}
	}
	return nil
}

// Logger returns a logger writing to w in the configured format and level.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ClientOptions returns the client options of the settings.
func (c *Config) ClientOptions(logger zerolog.Logger) []client.Option {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithSecurity(c.Security),
		client.WithApplicationName(c.ApplicationName),
		client.WithSessionTimeout(c.SessionTimeout),
		client.WithOperationTimeout(c.OperationTimeout),
		client.WithKeepAliveInterval(c.KeepAliveInterval),
		client.WithReconnectPeriod(c.ReconnectPeriod),
	}
	if c.UserName != "" {
		opts = append(opts, client.WithUserNameIdentity(c.UserName, c.Password))
	}
	if c.TrustedCertificatesFile != "" {
		opts = append(opts, client.WithTrustedCertificatesFile(c.TrustedCertificatesFile))
	}
	if c.RejectUntrusted {
		opts = append(opts, client.WithRejectUntrustedCertificates())
	}
	if c.SuppressHostNameInvalid {
		opts = append(opts, client.WithSuppressHostNameInvalid())
	}
	return opts
}
