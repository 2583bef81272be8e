package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/gridshare/game/grid"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8000
	DefaultStaticDir  = "static"
	DefaultReadLimit  = 512
	DefaultSendBuffer = 256
	DefaultRateLimit  = 20
	DefaultRateBurst  = 40
)

// Duration is a time.Duration that reads and writes Go duration strings in JSON.
type Duration struct {
	time.Duration
}

// MarshalJSON writes the duration as a string such as "5m0s".
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "90s"-style strings or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d.Duration = parsed
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	d.Duration = time.Duration(n)
	return nil
}

// Config holds every runtime setting of the server
type Config struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	StaticDir string `json:"static_dir"`

	Rows   int `json:"rows"`
	Cols   int `json:"cols"`
	States int `json:"states"`

	// Maximum inbound frame size in bytes.
	ReadLimit int64 `json:"read_limit"`
	// Outbound frames queued per client before it is treated as dead.
	SendBuffer int `json:"send_buffer"`
	// Zero disables idle reaping.
	IdleTimeout    Duration `json:"idle_timeout"`
	AllowedOrigins []string `json:"allowed_origins"`

	// Requests per second per client IP on mutating REST routes. Zero disables.
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`
	// Proxies (IPs or CIDRs) whose X-Forwarded-For is believed.
	TrustedProxies []string `json:"trusted_proxies"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// Default returns the standard configuration: 50x50 binary grid on :8000.
func Default() *Config {
	return &Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		StaticDir:  DefaultStaticDir,
		Rows:       grid.DefaultRows,
		Cols:       grid.DefaultCols,
		States:     grid.DefaultStates,
		ReadLimit:  DefaultReadLimit,
		SendBuffer: DefaultSendBuffer,
		RateLimit:  DefaultRateLimit,
		RateBurst:  DefaultRateBurst,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// LoadFile reads a JSON config file on top of the defaults and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and returns an error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.Rows < 1 || c.Rows > grid.MaxDimension {
		problems = append(problems, fmt.Sprintf("rows must be within 1..%d", grid.MaxDimension))
	}
	if c.Cols < 1 || c.Cols > grid.MaxDimension {
		problems = append(problems, fmt.Sprintf("cols must be within 1..%d", grid.MaxDimension))
	}
	if c.States < 2 {
		problems = append(problems, "states must be at least 2")
	}
	if c.ReadLimit < 64 {
		problems = append(problems, "read_limit must be at least 64 bytes")
	}
	if c.SendBuffer < 1 {
		problems = append(problems, "send_buffer must be positive")
	}
	if c.IdleTimeout.Duration < 0 {
		problems = append(problems, "idle_timeout cannot be negative")
	}
	if c.RateLimit < 0 {
		problems = append(problems, "rate_limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		problems = append(problems, "rate_burst must be positive when rate_limit is set")
	}
	for _, p := range c.TrustedProxies {
		if !validProxy(p) {
			problems = append(problems, fmt.Sprintf("trusted_proxies entry %q is not an IP or CIDR", p))
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q must be text or json", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func validProxy(entry string) bool {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		_, err := netip.ParsePrefix(entry)
		return err == nil
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewGrid builds the grid store described by the config.
func (c *Config) NewGrid() (*grid.Store, error) {
	return grid.New(c.Rows, c.Cols, c.States)
}
