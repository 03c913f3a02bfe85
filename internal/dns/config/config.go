// Package config loads the relay configuration. Sources are layered, later
// ones overriding earlier ones: built-in defaults, an optional config file,
// PBDNS_* environment variables, then command-line flags.
package config

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PBDNS_"

// AppConfig holds the relay configuration.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Listen is the ip:port the PowerDNS protobuf listener binds to.
	Listen string `koanf:"listen" validate:"required,ip_port"`

	// Remote is the collector ip:port. Empty forwards to stdout.
	Remote string `koanf:"remote" validate:"omitempty,ip_port"`

	// Dnstap is the ip:port of the optional dnstap listener.
	Dnstap string `koanf:"dnstap" validate:"omitempty,ip_port"`

	// Workers is the number of goroutines mapping and forwarding messages.
	Workers int `koanf:"workers" validate:"gte=1,lte=1024"`

	// QueueSize bounds the number of frames waiting for a worker.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// Ignore lists query names that are not forwarded; "*.name" also
	// matches subdomains.
	Ignore []string `koanf:"ignore" validate:"dive,required"`

	// IgnoreFile is a newline-delimited file of additional ignore entries.
	IgnoreFile string `koanf:"ignore_file" validate:"omitempty,file"`

	// IgnoreCacheSize is the ignore decision cache capacity; 0 disables it.
	IgnoreCacheSize int `koanf:"ignore_cache_size" validate:"gte=0"`

	// StatsInterval is the period of the stats log line; 0 disables it.
	StatsInterval time.Duration `koanf:"stats_interval" validate:"gte=0"`
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:             "prod",
	LogLevel:        "info",
	Listen:          "0.0.0.0:50001",
	Workers:         4,
	QueueSize:       1024,
	IgnoreCacheSize: 4096,
}

// validIPPort validates whether the provided field value is a valid IP address and port combination.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0
}

// flagOutput receives usage text and flag errors. Tests silence it.
var flagOutput io.Writer = os.Stderr

// envLoader loads environment variables with the prefix "PBDNS_".
// Values containing commas or spaces become lists.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads a config file, picking the parser from its extension.
var fileLoader = func(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	return k.Load(file.Provider(path), parser)
}

// registerValidation registers the "ip_port" tag with the provided validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load builds the configuration from defaults, the optional file named by
// --config, the environment and args (without the program name). It
// returns pflag.ErrHelp when help was requested.
func Load(args []string) (*AppConfig, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if extra := fs.Args(); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", extra[0])
	}

	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	if err := flagLoader(k, fs); err != nil {
		return nil, fmt.Errorf("error loading flags: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
