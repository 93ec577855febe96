/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

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
	catalog        string
	codeLength     int
	maxMessageSize int64
	maxSessions    int
	port           int
	prefix         string
	profile        bool
	sendBuffer     int
	sendTimeout    time.Duration
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.codeLength < 4 || c.codeLength > 32 {
		return fmt.Errorf("invalid code length (must be between 4-32 inclusive): %d", c.codeLength)
	}
	if c.maxSessions < 0 {
		return fmt.Errorf("invalid session limit (must be 0 or greater): %d", c.maxSessions)
	}
	if c.sendBuffer < 1 {
		return fmt.Errorf("invalid send buffer (must be 1 or greater): %d", c.sendBuffer)
	}
	if c.maxMessageSize < 1 {
		return fmt.Errorf("invalid max message size (must be 1 or greater): %d", c.maxMessageSize)
	}
	if c.sendTimeout <= 0 {
		return fmt.Errorf("invalid send timeout (must be greater than 0): %s", c.sendTimeout)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must be 0 or greater): %s", c.sessionTimeout)
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
	v.SetEnvPrefix("FILMVOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "filmvote",
		Short:         "Pick a film together by taking turns eliminating the rest.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: FILMVOTE_BIND)")
	fs.StringVarP(&cfg.catalog, "catalog", "c", "", "path to films.json catalog, empty to accept any film list (env: FILMVOTE_CATALOG)")
	fs.IntVar(&cfg.codeLength, "code-length", 6, "length of generated session codes and player ids (env: FILMVOTE_CODE_LENGTH)")
	fs.Int64Var(&cfg.maxMessageSize, "max-message-size", 1<<20, "largest accepted client message, in bytes (env: FILMVOTE_MAX_MESSAGE_SIZE)")
	fs.IntVar(&cfg.maxSessions, "max-sessions", 0, "maximum concurrent sessions, 0 for unlimited (env: FILMVOTE_MAX_SESSIONS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: FILMVOTE_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: FILMVOTE_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: FILMVOTE_PROFILE)")
	fs.IntVar(&cfg.sendBuffer, "send-buffer", 16, "messages queued per connection before sends fail (env: FILMVOTE_SEND_BUFFER)")
	fs.DurationVar(&cfg.sendTimeout, "send-timeout", 10*time.Second, "time allowed to write one message to a client (env: FILMVOTE_SEND_TIMEOUT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 0, "time before idle sessions are ended, 0 to keep them forever (env: FILMVOTE_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: FILMVOTE_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: FILMVOTE_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: FILMVOTE_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: FILMVOTE_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("filmvote v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
