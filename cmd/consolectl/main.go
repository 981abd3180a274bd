// consolectl drives a console Engine against a backend from the command
// line: sign in, walk guarded routes, load the map SDK and inspect the
// resulting session state.
//
// Durable session keys live in Redis when --redis-addr (or REDIS_ADDR) is
// set; otherwise an in-process miniredis is used and the session ends with
// the process.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	goConsole "github.com/MrEthical07/goConsole"
)

type options struct {
	configPath string
	baseURL    string
	redisAddr  string
	mapKey     string
	logFormat  string
	logLevel   string
	userID     string
	password   string
	email      string
	code       string
	yes        bool
	metrics    string

	bench benchOptions
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("consolectl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "YAML config file (default: $"+goConsole.ConfigEnv+")")
	flagSet.StringVar(&opts.baseURL, "base-url", "", "backend base URL, overrides the config")
	flagSet.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flagSet.StringVar(&opts.mapKey, "map-key", "", "map provider API key, overrides the config")
	flagSet.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flagSet.StringVar(&opts.userID, "user", "", "sign in with this user ID before running the command")
	flagSet.StringVar(&opts.password, "password", "", "password for --user")
	flagSet.StringVar(&opts.email, "email", "", "sign in with this e-mail address and --code")
	flagSet.StringVar(&opts.code, "code", "", "one-time code for --email")
	flagSet.BoolVarP(&opts.yes, "yes", "y", false, "answer yes to every prompt")
	flagSet.StringVar(&opts.metrics, "metrics", "", "print metrics after the command: prom (the default with a bare --metrics) or otel")
	flagSet.Lookup("metrics").NoOptDefVal = metricsProm
	opts.bench.addFlags(flagSet)
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}
	if err := validMetricsFormat(opts.metrics); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return errors.New("missing command")
	}
	command, commandArgs := rest[0], rest[1:]

	logger, err := newLogger(stderr, opts.logFormat, opts.logLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if command == "bench-loader" {
		return runBench(ctx, stdout, logger, opts.bench)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	client, cleanup, err := openRedis(opts.redisAddr, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := goConsole.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(logger).
		WithNotifier(&terminalNotifier{out: stderr}).
		WithPrompter(newTerminalPrompter(stdin, stderr, opts.yes)).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := signIn(ctx, engine, opts, stdout); err != nil {
		return err
	}

	switch command {
	case "status":
		printState(stdout, engine.State())
	case "login":
		if opts.userID == "" && opts.email == "" {
			return errors.New("login needs --user/--password or --email/--code")
		}
	case "navigate":
		if len(commandArgs) == 0 {
			return errors.New("navigate needs at least one path")
		}
		for _, path := range commandArgs {
			d, err := engine.Navigate(ctx, path)
			if err != nil {
				return fmt.Errorf("navigate %s: %w", path, err)
			}
			fmt.Fprintf(stdout, "%-24s %-13s reason=%s now=%s\n", path, d.Kind, d.Reason, engine.CurrentPath())
		}
	case "logout":
		if err := engine.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "signed out")
	case "load-map":
		sdk, err := engine.LoadMap(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "map sdk %s loaded: %d bytes, callback %s\n", sdk.Version, len(sdk.Source), sdk.Callback)
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	return printMetrics(ctx, stdout, engine, opts.metrics)
}

func loadConfig(opts options) (goConsole.Config, error) {
	var (
		cfg goConsole.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = goConsole.LoadConfig(opts.configPath)
	} else {
		cfg, err = goConsole.LoadConfigFromEnv()
	}
	if err != nil {
		return goConsole.Config{}, err
	}
	if opts.baseURL != "" {
		cfg.HTTP.BaseURL = opts.baseURL
	}
	if opts.mapKey != "" {
		cfg.MapLoader.APIKey = opts.mapKey
	}
	return cfg, cfg.Validate()
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		logger.Debug("using redis", "addr", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	logger.Debug("using miniredis", "addr", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func signIn(ctx context.Context, engine *goConsole.Engine, opts options, stdout io.Writer) error {
	var (
		role goConsole.Role
		err  error
	)
	switch {
	case opts.userID != "":
		role, err = engine.Login(ctx, opts.userID, opts.password)
	case opts.email != "":
		role, err = engine.LoginByCode(ctx, opts.email, opts.code)
	default:
		return nil
	}
	if err != nil {
		var de *goConsole.DomainError
		if errors.As(err, &de) {
			return fmt.Errorf("login rejected: %s", de.Message())
		}
		return fmt.Errorf("login: %w", err)
	}
	fmt.Fprintf(stdout, "signed in as %s\n", role)
	return nil
}

func printState(w io.Writer, st goConsole.State) {
	fmt.Fprintf(w, "authenticated:   %t\n", st.Authenticated)
	fmt.Fprintf(w, "role:            %s\n", st.Role)
	if st.User != nil {
		fmt.Fprintf(w, "user:            %s (%s, id %s)\n", st.User.Username, st.User.Email, st.User.UserID)
	}
	fmt.Fprintf(w, "approval:        %s\n", st.ApprovalStatus)
	fmt.Fprintf(w, "pending:         %d\n", st.PendingApplicationsCount)
	fmt.Fprintf(w, "polling:         %t\n", st.PollingActive)
	fmt.Fprintf(w, "face-auth badge: %s\n", st.FaceAuthNotificationStatus)
	fmt.Fprintf(w, "path:            %s\n", st.CurrentPath)
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", format)
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `consolectl drives a console session against a backend.

Usage:
  consolectl [flags] <command> [args]

Commands:
  status               print the session state
  login                sign in with --user/--password or --email/--code
  navigate PATH...     guard and follow each path in turn
  logout               end the session
  load-map             load the map provider SDK
  bench-loader         stress the resource loader against a simulated SDK

Flags:
%s`, flagSet.FlagUsages())
}
