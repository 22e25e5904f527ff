package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/shareify/internal/flagx"
)

// userFlag collects repeated "login:password" values into a map.
type userFlag map[string]string

func (u userFlag) String() string { return fmt.Sprintf("%d users", len(u)) }

func (u userFlag) Set(v string) error {
	login, password, ok := strings.Cut(v, ":")
	if !ok || login == "" || password == "" {
		return fmt.Errorf("want login:password, got %q", v)
	}
	u[login] = password
	return nil
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   listen address (e.g., ":8080")
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-f string   directory served by /finder
//	-l string   log level
//	-u string   bridge user "email:password" (repeatable)
//	-U string   server user "username:password" (repeatable)
//
// Users given on the command line are added to the configured ones.
func parseFlags(config *Config, args []string) error {
	// Filter args to include only the flags handled here.
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-f", "-l", "-u", "-U"})

	fs := flag.NewFlagSet("devrelay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity duration (in minutes)")
	fs.StringVar(&config.FinderRoot, "f", config.FinderRoot, "directory served by /finder")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if config.BridgeUsers == nil {
		config.BridgeUsers = map[string]string{}
	}
	if config.ServerUsers == nil {
		config.ServerUsers = map[string]string{}
	}
	fs.Var(userFlag(config.BridgeUsers), "u", "bridge user email:password")
	fs.Var(userFlag(config.ServerUsers), "U", "server user username:password")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// -t is in whole minutes; leave a finer JSON value alone unless given
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		}
	})
	return nil
}
