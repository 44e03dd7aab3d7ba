package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/gqlclient"
	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/session"
)

// Environment defaults for the probe flags.
const (
	TokenEnv    = "NOVO_TOKEN"
	PasswordEnv = "NOVO_PASSWORD"
)

// clientFlags are shared by every command that talks to the backend.
type clientFlags struct {
	endpoint string
	token    string
	timeout  time.Duration
	jsonOut  bool
}

func (f *clientFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.endpoint, "endpoint", os.Getenv(gqlclient.EndpointEnv), "GraphQL endpoint (default $"+gqlclient.EndpointEnv+")")
	fs.StringVar(&f.token, "token", os.Getenv(TokenEnv), "Bearer token to send (default $"+TokenEnv+")")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "Overall timeout")
	fs.BoolVar(&f.jsonOut, "json", false, "Print JSON instead of a table")
}

// service builds a one-shot auth service. Sessions created by login are kept
// in memory and discarded on exit.
func (f *clientFlags) service(env Env) (*auth.Service, error) {
	obs := observability.NewLogrusObserver(env.Log)

	cfg := gqlclient.Config{
		Endpoint: f.endpoint,
		Observer: obs,
	}
	if f.token != "" {
		cfg.TokenAccessor = auth.StaticTokenAccessor(f.token)
	}

	client, err := gqlclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return auth.NewService(client, session.NewMemoryStore(1, time.Hour), nil, obs), nil
}

func newFlagSet(name string, env Env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Out)
	return fs
}

func newStatusCommand(env Env) *Command {
	return &Command{
		Name:        "status",
		Description: "Show the backend's session status",
		Run: func(ctx context.Context, args []string) error {
			var f clientFlags
			fs := newFlagSet("status", env)
			f.register(fs)
			if err := fs.Parse(args); err != nil {
				return err
			}

			svc, err := f.service(env)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			status, err := svc.SessionStatus(ctx)
			if err != nil {
				return fmt.Errorf("session status: %w", err)
			}
			env.Log.WithField("maintenance", status.MaintenanceMode).Debug("session status received")

			if f.jsonOut {
				return writeJSON(env.Out, status)
			}
			return writeTable(env.Out, [][2]string{
				{"expires_at", formatTime(status.ExpiresAt)},
				{"maintenance_mode", fmt.Sprintf("%t", status.MaintenanceMode)},
			})
		},
	}
}

func newMeCommand(env Env) *Command {
	return &Command{
		Name:        "me",
		Description: "Show the user the token belongs to",
		Run: func(ctx context.Context, args []string) error {
			var f clientFlags
			fs := newFlagSet("me", env)
			f.register(fs)
			if err := fs.Parse(args); err != nil {
				return err
			}
			if f.token == "" {
				return fmt.Errorf("a token is required (-token or $%s)", TokenEnv)
			}

			svc, err := f.service(env)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			me, err := svc.Me(ctx)
			if err != nil {
				return fmt.Errorf("me: %w", err)
			}

			if f.jsonOut {
				return writeJSON(env.Out, me)
			}
			name := ""
			if me.FullName != nil {
				name = *me.FullName
			}
			return writeTable(env.Out, [][2]string{
				{"id", me.ID},
				{"email", me.Email},
				{"name", name},
				{"verified", fmt.Sprintf("%t", me.Verified)},
				{"mfa_enabled", fmt.Sprintf("%t", me.MFAEnabled)},
				{"modules", moduleSlugs(me.Modules)},
			})
		},
	}
}

func newLoginCommand(env Env) *Command {
	return &Command{
		Name:        "login",
		Description: "Sign in and show the resulting session",
		Run: func(ctx context.Context, args []string) error {
			var f clientFlags
			fs := newFlagSet("login", env)
			f.register(fs)
			email := fs.String("email", "", "Account email")
			password := fs.String("password", os.Getenv(PasswordEnv), "Account password (default $"+PasswordEnv+")")
			showToken := fs.Bool("show-token", false, "Print the access token")
			if err := fs.Parse(args); err != nil {
				return err
			}

			svc, err := f.service(env)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			res, err := svc.Login(ctx, auth.Credentials{Email: *email, Password: *password})
			if err != nil {
				presented := auth.PresentError(nil, err)
				return fmt.Errorf("%s: %s", presented.Title, presented.Description)
			}

			s := res.Session
			if !*showToken {
				s.AccessToken = nil
				s.RefreshToken = nil
			}

			if f.jsonOut {
				return writeJSON(env.Out, s)
			}
			rows := [][2]string{
				{"user_id", deref(s.UserID)},
				{"email", deref(s.Email)},
				{"state", string(svc.Normalizer().State(res.Session))},
				{"expires_at", formatTime(s.ExpiresAt)},
				{"mfa_required", fmt.Sprintf("%t", s.MFARequired)},
				{"modules", moduleSlugs(s.Modules)},
			}
			if *showToken {
				rows = append(rows, [2]string{"access_token", deref(s.AccessToken)})
			}
			return writeTable(env.Out, rows)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, rows [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func moduleSlugs(modules []session.Module) string {
	slugs := make([]string, 0, len(modules))
	for _, m := range modules {
		slugs = append(slugs, m.Slug)
	}
	return strings.Join(slugs, ",")
}
