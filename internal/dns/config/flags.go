package config

import (
	"fmt"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const usageHeader = `pbdns-relayd: relay PowerDNS protobuf telemetry as newline-delimited JSON.

Messages received on --listen are written to stdout, or to the collector
given with --remote. Every flag may also be set through the environment,
e.g. PBDNS_LISTEN, PBDNS_REMOTE, PBDNS_WORKERS.

Usage:
  pbdns-relayd [flags]

Flags:
`

// flagKeys maps flags that carry a value to their configuration key.
var flagKeys = map[string]string{
	"listen":     "listen",
	"remote":     "remote",
	"dnstap":     "dnstap",
	"env":        "env",
	"log-level":  "log_level",
	"workers":    "workers",
	"queue-size": "queue_size",
	"ignore":     "ignore",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("pbdns-relayd", pflag.ContinueOnError)
	fs.SetOutput(flagOutput)
	fs.StringP("listen", "l", DEFAULT_APP_CONFIG.Listen, "listen on ip:port for PowerDNS protobuf messages")
	fs.StringP("remote", "j", "", "forward JSON to the collector at ip:port instead of stdout")
	fs.BoolP("verbose", "v", false, "log at debug level")
	fs.StringP("config", "c", "", "read configuration from a YAML, JSON or TOML file")
	fs.String("dnstap", "", "also accept dnstap Frame Streams on ip:port")
	fs.String("env", DEFAULT_APP_CONFIG.Env, "runtime environment: dev or prod")
	fs.String("log-level", DEFAULT_APP_CONFIG.LogLevel, "log level: debug, info, warn or error")
	fs.Int("workers", DEFAULT_APP_CONFIG.Workers, "number of forwarding workers")
	fs.Int("queue-size", DEFAULT_APP_CONFIG.QueueSize, "frames buffered ahead of the workers")
	fs.StringSlice("ignore", nil, "query names not to forward; *.name matches subdomains (repeatable)")
	fs.Usage = func() {
		fmt.Fprint(flagOutput, usageHeader)
		fs.PrintDefaults()
	}
	return fs
}

// flagLoader applies only the flags given on the command line, so that
// unset flags never mask file or environment values.
var flagLoader = func(k *koanf.Koanf, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if f.Name == "verbose" {
			if on, _ := fs.GetBool("verbose"); on {
				err = k.Set("log_level", "debug")
			}
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		switch f.Value.Type() {
		case "stringSlice":
			var v []string
			v, err = fs.GetStringSlice(f.Name)
			if err == nil {
				err = k.Set(key, v)
			}
		case "int":
			var v int
			v, err = fs.GetInt(f.Name)
			if err == nil {
				err = k.Set(key, v)
			}
		default:
			err = k.Set(key, f.Value.String())
		}
	})
	return err
}
