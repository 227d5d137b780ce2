package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/scrawl/client"
)

type Config struct {
	bind           string
	maxMessageSize int64
	mdns           bool
	pongTimeout    time.Duration
	port           int
	prefix         string
	profile        bool
	rateLimit      int
	rateWindow     time.Duration
	redisAddr      string
	snapshotSize   int
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	server        string
	timeout       time.Duration
	browseTimeout time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.pongTimeout < time.Second {
		return fmt.Errorf("invalid pong timeout (must be at least 1s): %s", c.pongTimeout)
	}
	if c.maxMessageSize < 1024 {
		return fmt.Errorf("invalid max message size (must be at least 1024 bytes): %d", c.maxMessageSize)
	}
	if c.snapshotSize < 16 || c.snapshotSize > 4096 {
		return fmt.Errorf("invalid snapshot size (must be between 16-4096 inclusive): %d", c.snapshotSize)
	}
	if c.redisAddr != "" && (c.rateLimit < 1 || c.rateWindow <= 0) {
		return errors.New("--rate-limit and --rate-window must be positive when --redis-addr is set")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "scrawl",
		Short:         "Shared drawing rooms with live chat, served over WebSockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SCRAWL_BIND)")
	fs.Int64Var(&cfg.maxMessageSize, "max-message-size", 512*1024, "largest inbound websocket message, in bytes (env: SCRAWL_MAX_MESSAGE_SIZE)")
	fs.BoolVar(&cfg.mdns, "mdns", false, "advertise this server on the local network via mDNS (env: SCRAWL_MDNS)")
	fs.DurationVar(&cfg.pongTimeout, "pong-timeout", 60*time.Second, "time without a pong before a connection is dropped (env: SCRAWL_PONG_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SCRAWL_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SCRAWL_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SCRAWL_PROFILE)")
	fs.IntVar(&cfg.rateLimit, "rate-limit", 120, "strokes and chat messages allowed per connection per window (env: SCRAWL_RATE_LIMIT)")
	fs.DurationVar(&cfg.rateWindow, "rate-window", 10*time.Second, "rate limiting window (env: SCRAWL_RATE_WINDOW)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for rate limiting; disabled if empty (env: SCRAWL_REDIS_ADDR)")
	fs.IntVar(&cfg.snapshotSize, "snapshot-size", 1000, "edge length of rendered snapshots, in pixels (env: SCRAWL_SNAPSHOT_SIZE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SCRAWL_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SCRAWL_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SCRAWL_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SCRAWL_VERSION)")

	bindFlags(v, fs)

	cmd.AddCommand(newCheckCmd(cfg, v), newBrowseCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("scrawl v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newCheckCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check ROOM",
		Short: "Report whether a room currently has anyone in it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkRoom(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&cfg.server, "server", "ws://localhost:8080/ws", "websocket endpoint of the server (env: SCRAWL_SERVER)")
	fs.DurationVar(&cfg.timeout, "timeout", client.DefaultCheckTimeout, "time to wait for an answer (env: SCRAWL_TIMEOUT)")

	bindFlags(v, fs)

	return cmd
}

func newBrowseCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List scrawl servers advertised on the local network.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return browseServers(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.browseTimeout, "timeout", 3*time.Second, "time to listen for answers (env: SCRAWL_TIMEOUT)")

	bindFlags(v, cmd.Flags())

	return cmd
}
