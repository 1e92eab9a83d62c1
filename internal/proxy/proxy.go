// internal/proxy/proxy.go
package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// Config holds the connection details for a single upstream proxy.
// Immutable once created.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// ParseLine parses a proxy entry in host:port:username:password format.
func ParseLine(line string) (*Config, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty proxy line")
	}

	parts := strings.Split(line, ":")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid proxy format %q: expected host:port:username:password", line)
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy port %q: %v", parts[1], err)
	}

	return &Config{
		Host:     strings.TrimSpace(parts[0]),
		Port:     port,
		Username: strings.TrimSpace(parts[2]),
		Password: strings.TrimSpace(parts[3]),
	}, nil
}

// URL builds the proxy URL with embedded credentials.
func (c *Config) URL() *url.URL {
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Pool is a fixed set of proxies assigned to tasks round-robin by index.
// An empty pool means direct connections.
type Pool struct {
	configs []*Config
}

// NewPool creates a pool from the given configs.
func NewPool(configs []*Config) *Pool {
	return &Pool{configs: configs}
}

// LoadList reads proxy entries from r, one per line. Blank lines, comment
// lines and malformed entries are skipped.
func LoadList(r io.Reader) (*Pool, error) {
	var configs []*Config

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cfg, err := ParseLine(line)
		if err != nil {
			continue
		}
		configs = append(configs, cfg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %v", err)
	}

	return NewPool(configs), nil
}

// Size returns the number of proxies in the pool.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.configs)
}

// PickFor returns the proxy assigned to task index i, or nil when the pool
// is empty. Assignment is deterministic: configs[i mod size].
func (p *Pool) PickFor(i int) *Config {
	if p == nil || len(p.configs) == 0 {
		return nil
	}
	return p.configs[i%len(p.configs)]
}
