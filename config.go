package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	redis          string
	roomTimeout    time.Duration
	sessionTTL     time.Duration
	sixAgain       string
	tlsCert        string
	tlsKey         string
	turnTimeout    time.Duration
	verbose        bool
	version        bool

	// dice is not a flag; ServePage installs the crypto-backed source,
	// tests install a seeded one.
	dice Dice
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.turnTimeout <= 0 {
		return fmt.Errorf("invalid turn timeout: %s", c.turnTimeout)
	}
	switch c.sixAgain {
	case sixAgainAlways, sixAgainProgress, sixAgainOff:
	default:
		return fmt.Errorf("invalid --six-again policy (must be %s, %s or %s): %q",
			sixAgainAlways, sixAgainProgress, sixAgainOff, c.sixAgain)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LUDOD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "ludod",
		Short:         "Authoritative realtime server for 2-4 player Ludo matches.",
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

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: LUDOD_BIND)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 30*time.Second, "reconnect window before a disconnected player is removed (env: LUDOD_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: LUDOD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: LUDOD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: LUDOD_PROFILE)")
	fs.StringVar(&cfg.redis, "redis", "", "redis address for the session store; empty uses in-memory (env: LUDOD_REDIS)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 60*time.Minute, "time before idle rooms are destroyed (env: LUDOD_ROOM_TIMEOUT)")
	fs.DurationVar(&cfg.sessionTTL, "session-ttl", 30*time.Minute, "lifetime of session tokens in the session store (env: LUDOD_SESSION_TTL)")
	fs.StringVar(&cfg.sixAgain, "six-again", sixAgainAlways, "extra roll on a six: always, progress or off (env: LUDOD_SIX_AGAIN)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: LUDOD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: LUDOD_TLS_KEY)")
	fs.DurationVar(&cfg.turnTimeout, "turn-timeout", 15*time.Second, "deadline for the active player to roll or move (env: LUDOD_TURN_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: LUDOD_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: LUDOD_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("ludod v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
