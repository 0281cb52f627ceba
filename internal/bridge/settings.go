package bridge

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/workbench/internal/config"
)

// Environment variables that override the bridge section of config.yaml.
const (
	EnvEnabled = "WORKBENCH_BRIDGE_ENABLED"
	EnvHost    = "WORKBENCH_BRIDGE_HOST"
	EnvPort    = "WORKBENCH_BRIDGE_PORT"
)

const (
	DefaultHost               = "127.0.0.1"
	DefaultPort               = 8765
	DefaultMaxBodyBytes int64 = 1 << 20
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 15 * time.Second
	DefaultIdleTimeout        = 60 * time.Second
)

// Settings is the resolved runtime configuration of the bridge server.
// Port 0 asks the kernel for a free port.
type Settings struct {
	Enabled      bool
	Host         string
	Port         int
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultSettings returns an enabled loopback server on DefaultPort.
func DefaultSettings() Settings {
	return Settings{
		Enabled:      true,
		Host:         DefaultHost,
		Port:         DefaultPort,
		MaxBodyBytes: DefaultMaxBodyBytes,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
}

// SettingsFromConfig layers the config file and then the environment over
// DefaultSettings. Malformed environment values are ignored.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg != nil {
		bridgeCfg := cfg.Project.Bridge
		if bridgeCfg.Enabled != nil {
			s.Enabled = *bridgeCfg.Enabled
		}
		if host := strings.TrimSpace(bridgeCfg.Host); host != "" {
			s.Host = host
		}
		if bridgeCfg.Port > 0 && bridgeCfg.Port <= 65535 {
			s.Port = bridgeCfg.Port
		}
	}
	if enabled, ok := lookupEnv(EnvEnabled, strconv.ParseBool); ok {
		s.Enabled = enabled
	}
	if host, ok := lookupEnv(EnvHost, func(v string) (string, error) { return v, nil }); ok {
		s.Host = host
	}
	if port, ok := lookupEnv(EnvPort, strconv.Atoi); ok && port > 0 && port <= 65535 {
		s.Port = port
	}
	return s.withDefaults()
}

func lookupEnv[T any](name string, parse func(string) (T, error)) (T, bool) {
	var zero T
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return zero, false
	}
	v, err := parse(raw)
	if err != nil {
		return zero, false
	}
	return v, true
}

// withDefaults fills zero limits and timeouts.
func (s Settings) withDefaults() Settings {
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	return s
}

// Validate rejects ports outside 0–65535.
func (s Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("bridge: port %d out of range", s.Port)
	}
	return nil
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}
