// Package config loads jenny's settings from layered sources.
//
// Values are merged in this order, later layers winning:
//
//  1. built-in defaults ([Defaults])
//  2. a TOML or YAML config file, picked by extension
//  3. JENNY_* environment variables, where "__" separates sections
//     (JENNY_SERVER__ADDRESS sets server.address)
//
// A [Store] keeps the merged result, answers typed lookups by dotted key and
// notifies listeners when [Store.Reload] observes a change. [Watcher] calls
// Reload whenever the config file is saved.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
)

// EnvPrefix is the prefix of environment variables read by [Load].
const EnvPrefix = "JENNY_"

// Config is the typed view of every setting jenny reads.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	Web    WebConfig    `koanf:"web"`
	Cache  CacheConfig  `koanf:"cache"`
	Npm    NpmConfig    `koanf:"npm"`
}

type ServerConfig struct {
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type WebConfig struct {
	// GlobalModules names registered modules required by every page.
	GlobalModules []string `koanf:"global_modules"`
	// Manifest is the site manifest declaring the modules to serve.
	Manifest string `koanf:"manifest"`
}

type CacheConfig struct {
	Backend string        `koanf:"backend"`
	Dir     string        `koanf:"dir"`
	TTL     time.Duration `koanf:"ttl"`
	Redis   RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type NpmConfig struct {
	Registry string `koanf:"registry"`
	CDN      string `koanf:"cdn"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:   LogConfig{Level: "info"},
		Web:   WebConfig{GlobalModules: []string{}},
		Cache: CacheConfig{Backend: "file", TTL: 24 * time.Hour},
		Npm: NpmConfig{
			Registry: "https://registry.npmjs.org",
			CDN:      "https://cdn.jsdelivr.net/npm",
		},
	}
}

// sliceKeys are split on commas when they arrive as a single string.
var sliceKeys = []string{"web.global_modules"}

var validBackends = []string{"file", "redis", "none"}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return jerrors.Configuration("server.address must not be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return jerrors.Configuration("server timeouts must not be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return jerrors.Configuration("log.level: %v", err)
	}
	if !slices.Contains(validBackends, c.Cache.Backend) {
		return jerrors.Configuration("cache.backend %q: want one of %s", c.Cache.Backend, strings.Join(validBackends, ", "))
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return jerrors.Configuration("cache.redis.addr is required for the redis backend")
	}
	for key, u := range map[string]string{"npm.registry": c.Npm.Registry, "npm.cdn": c.Npm.CDN} {
		if err := jerrors.ValidateURL(u); err != nil {
			return jerrors.Configuration("%s: %v", key, err)
		}
	}
	return nil
}

// Store holds the merged configuration and its change listeners.
type Store struct {
	path   string
	logger *log.Logger

	mu        sync.RWMutex
	k         *koanf.Koanf
	cfg       Config
	hash      string
	listeners []func(Config)
}

// Load reads every layer and returns a ready Store. An empty path skips the
// file layer; a path that does not exist is an error.
func Load(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{path: path, logger: logger}
	k, cfg, err := s.read()
	if err != nil {
		return nil, err
	}
	s.k, s.cfg, s.hash = k, cfg, digest(k)
	return s, nil
}

func (s *Store) read() (*koanf.Koanf, Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if s.path != "" {
		if _, err := os.Stat(s.path); err != nil {
			return nil, Config{}, jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "config file %s", s.path)
		}
		parser, err := ParserFor(s.path)
		if err != nil {
			return nil, Config{}, err
		}
		if err := k.Load(file.Provider(s.path), parser); err != nil {
			return nil, Config{}, jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "parse %s", s.path)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSlices(k); err != nil {
		return nil, Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, Config{}, jerrors.Wrap(jerrors.ErrCodeConfiguration, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, Config{}, err
	}
	return k, cfg, nil
}

// envKey maps JENNY_CACHE__REDIS__ADDR to cache.redis.addr.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(name, "__", ".")
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// ParserFor returns the koanf parser for a .toml, .yaml or .yml file.
func ParserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, jerrors.New(jerrors.ErrCodeUnsupported, "config file %s: unsupported format (want .toml, .yaml or .yml)", path)
	}
}

func digest(k *koanf.Koanf) string {
	data, err := json.Marshal(k.All())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Path returns the config file path, or "" when none was given.
func (s *Store) Path() string { return s.path }

// Config returns the current typed configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Get returns the string at key, or def when it is unset.
func (s *Store) Get(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.k.Exists(key) {
		return def
	}
	return s.k.String(key)
}

func (s *Store) Int(key string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.k.Exists(key) {
		return def
	}
	return s.k.Int(key)
}

func (s *Store) Bool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.k.Exists(key) {
		return def
	}
	return s.k.Bool(key)
}

func (s *Store) Strings(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Strings(key)
}

// Duration accepts both Go duration strings ("30s") and integer nanoseconds.
func (s *Store) Duration(key string, def time.Duration) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.k.Exists(key) {
		return def
	}
	return s.k.Duration(key)
}

// OnChange registers fn to run after every reload that changes a value.
func (s *Store) OnChange(fn func(Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads every layer. When the merged values differ from the
// current ones the store is updated and listeners run in registration order.
// A failed reload keeps the previous configuration.
func (s *Store) Reload() (bool, error) {
	k, cfg, err := s.read()
	if err != nil {
		return false, err
	}
	hash := digest(k)

	s.mu.Lock()
	if hash == s.hash {
		s.mu.Unlock()
		s.logger.Debug("config unchanged", "path", s.path)
		return false, nil
	}
	s.k, s.cfg, s.hash = k, cfg, hash
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.Info("config reloaded", "path", s.path)
	for _, fn := range listeners {
		fn(cfg)
	}
	return true, nil
}
