package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/internal/logging"
	"github.com/MrEthical07/authsession/store"
	"github.com/MrEthical07/authsession/transport"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"
)

var buildVersion = "dev"

// app holds the wired manager and whatever must be released after a command.
type app struct {
	manager *authsession.Manager
	out     io.Writer
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	handlers := map[string]func(context.Context, *app, []string) error{
		"login":    commandLogin,
		"register": commandRegister,
		"logout":   commandLogout,
		"profile":  commandProfile,
		"password": commandPassword,
		"status":   commandStatus,
		"token":    commandToken,
	}
	handler, ok := handlers[cmd]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	return handler(ctx, a, args)
}

func newApp(ctx context.Context, cfg cliConfig, out io.Writer) (*app, error) {
	a := &app{out: out}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	client, err := transport.New(cfg.BaseURL,
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(appName+"/"+strings.TrimSpace(buildVersion)),
	)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg, a)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.StoreSecret != "" {
		sealed, err := store.NewSealed(st, cfg.StoreSecret, store.DefaultSealConfig())
		if err != nil {
			a.close()
			return nil, err
		}
		st = sealed
	}

	builder := authsession.New().
		WithConfig(cfg.sessionConfig()).
		WithTransport(client).
		WithStore(st).
		WithLogger(logger)

	if cfg.AuditFile != "" {
		f, err := os.OpenFile(cfg.AuditFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open audit file: %w", err)
		}
		a.closers = append(a.closers, func() { _ = f.Close() })
		builder = builder.WithAuditSink(authsession.FanoutSink{
			authsession.NewJSONWriterSink(f),
			authsession.NewLogSink(logger, slog.LevelDebug),
		})
	}

	m, err := builder.Build(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.manager = m
	a.closers = append(a.closers, m.Close)
	return a, nil
}

func openStore(ctx context.Context, cfg cliConfig, a *app) (store.Backend, error) {
	switch cfg.Store {
	case "memory":
		return store.NewMemory(nil), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		rs := store.NewRedis(rdb, cfg.RedisPrefix, cfg.RedisTTL)
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			return nil, err
		}
		return rs, nil
	default:
		path, err := cfg.storePath()
		if err != nil {
			return nil, fmt.Errorf("resolve store path: %w", err)
		}
		return store.NewFile(path), nil
	}
}

/*
====================================
COMMANDS
====================================
*/

func commandLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "Username or email")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return errors.New("--username is required")
	}

	secret, err := readSecret("Password: ", *password)
	if err != nil {
		return err
	}

	_, err = a.manager.Login(ctx, map[string]string{
		"username": *username,
		"password": secret,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "login successful")
	return printUser(a.out, a.manager.User())
}

func commandRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("username", "", "Username")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	login := fs.Bool("login", false, "Log in after a successful registration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*email) == "" {
		return errors.New("--username and --email are required")
	}

	secret, err := readSecret("Password: ", *password)
	if err != nil {
		return err
	}

	if _, err := a.manager.Register(ctx, map[string]string{
		"username": *username,
		"email":    *email,
		"password": secret,
	}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "registration successful")

	if !*login {
		return nil
	}
	if _, err := a.manager.Login(ctx, map[string]string{
		"username": *username,
		"password": secret,
	}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "login successful")
	return nil
}

func commandLogout(ctx context.Context, a *app, _ []string) error {
	a.manager.Logout(ctx)
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func commandProfile(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	var sets multiFlag
	fs.Var(&sets, "set", "Update a profile field, key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(sets) > 0 {
		fields, err := sets.fields()
		if err != nil {
			return err
		}
		if _, err := a.manager.UpdateProfile(ctx, fields); err != nil {
			return err
		}
		return printUser(a.out, a.manager.User())
	}

	if _, err := a.manager.Profile(ctx); err != nil {
		if authsession.IsSessionInvalidated(err) {
			fmt.Fprintln(a.out, "session is no longer valid; logged out")
		}
		return err
	}
	return printUser(a.out, a.manager.User())
}

func commandPassword(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("password", flag.ContinueOnError)
	current := fs.String("current", "", "Current password (supply to avoid prompt)")
	next := fs.String("new", "", "New password (supply to avoid prompt)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cur, err := readSecret("Current password: ", *current)
	if err != nil {
		return err
	}
	nw, err := readSecret("New password: ", *next)
	if err != nil {
		return err
	}

	if _, err := a.manager.ChangePassword(ctx, map[string]string{
		"current_password": cur,
		"new_password":     nw,
	}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed")
	return nil
}

func commandStatus(_ context.Context, a *app, _ []string) error {
	s := a.manager.Session()
	fmt.Fprintf(a.out, "state: %s\n", s.State())
	if !s.IsAuthenticated {
		return nil
	}

	claims, err := a.manager.Claims()
	if err != nil {
		fmt.Fprintln(a.out, "token: opaque")
		return nil
	}
	if claims.Subject != "" {
		fmt.Fprintf(a.out, "subject: %s\n", claims.Subject)
	}
	if !claims.ExpiresAt.IsZero() {
		state := "valid"
		if claims.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(a.out, "expires: %s (%s)\n", claims.ExpiresAt.Local().Format(time.RFC3339), state)
	}
	return nil
}

func commandToken(_ context.Context, a *app, _ []string) error {
	tok, err := a.manager.TokenSource().Token()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, tok.AccessToken)
	return nil
}

/*
====================================
HELPERS
====================================
*/

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func (m multiFlag) fields() (map[string]string, error) {
	out := make(map[string]string, len(m))
	for _, kv := range m {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

// readSecret returns given when set, otherwise prompts without echo on a
// terminal or reads one line from stdin.
func readSecret(prompt, given string) (string, error) {
	if given != "" {
		return given, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprint(os.Stderr, "\n")
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printUser(w io.Writer, user authsession.UserProfile) error {
	if user == nil {
		fmt.Fprintln(w, "user: unknown")
		return nil
	}
	var pretty map[string]any
	if err := json.Unmarshal(user, &pretty); err != nil {
		fmt.Fprintf(w, "user: %s\n", user)
		return nil
	}
	data, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}

func printUsage() {
	fmt.Printf("authsession CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	authsession login --username alice [--password secret]
	authsession register --username alice --email alice@example.com [--password secret] [--login]
	authsession logout
	authsession profile [--set first_name=Alice --set location=Berlin]
	authsession password [--current old --new new]
	authsession status
	authsession token
	authsession version

Environment (also read from .env):
	AUTHSESSION_BASE_URL         remote service (default http://localhost:5000)
	AUTHSESSION_STORE            file, redis or memory (default file)
	AUTHSESSION_STORE_PATH       session file (default <user config dir>/authsession/session.json)
	AUTHSESSION_STORE_PASSPHRASE encrypt the stored token with this passphrase
	AUTHSESSION_REDIS_URL        redis://host:port/db when AUTHSESSION_STORE=redis
	AUTHSESSION_SEQUENCING       completion or call
	AUTHSESSION_PROFILE_FAILURE  logout or rejection
	AUTHSESSION_LOG_LEVEL        debug, info, warn, error
	AUTHSESSION_AUDIT_FILE       append audit events as JSON lines
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
