package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"codepair/internal/apiclient"
	"codepair/internal/config"
	"codepair/internal/event"
	"codepair/internal/logger"
	"codepair/internal/redirect"
	"codepair/internal/session"
)

// consoleNavigator stands in for the browser history API: navigations are
// reported instead of performed.
type consoleNavigator struct{}

func (consoleNavigator) Replace(path string)      { fmt.Printf("-> %s\n", path) }
func (consoleNavigator) ReplaceState(path string) { slog.Debug("url rewritten", "path", path) }

func main() {
	logHandler := logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	slog.SetDefault(slog.New(logHandler))

	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg := config.LoadClient()

	store, err := session.NewFileStore(cfg.SessionFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open session file %s: %v\n", cfg.SessionFile, err)
		os.Exit(1)
	}

	bus := event.NewBus()
	manager := session.NewManager(store, bus)
	defer manager.Close()

	client := apiclient.New(cfg.BackendURL, store, manager, bus)
	manager.SetProfileLoader(client)

	nav := consoleNavigator{}
	stop := redirect.NavigateOnInvalidate(bus, nav)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, flag.Args(), cfg, store, bus, manager, client, nav); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Let the invalidation subscriber drain before the process exits.
	time.Sleep(50 * time.Millisecond)
}

func run(ctx context.Context, args []string, cfg *config.ClientConfig, store session.Store, bus event.Bus, manager *session.Manager, client *apiclient.Client, nav consoleNavigator) error {
	switch args[0] {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: client login <redirect-url>")
		}
		u, err := url.Parse(args[1])
		if err != nil {
			return fmt.Errorf("bad redirect url: %w", err)
		}
		redirect.NewReceiver(manager, store, client, nav, bus).Consume(ctx, u)

		sess := manager.Session()
		if !sess.Authenticated() {
			return fmt.Errorf("login failed")
		}
		fmt.Printf("logged in as %s <%s>\n", sess.User.Name, sess.User.Email)
		return nil

	case "status":
		sess := manager.Session()
		// Stored tokens without a user mean a reconciliation fetch is in
		// flight; give it a moment to settle.
		for wait := 0; sess.AccessToken != "" && sess.User == nil && wait < 40; wait++ {
			time.Sleep(50 * time.Millisecond)
			sess = manager.Session()
		}
		if !sess.Authenticated() {
			fmt.Println("not logged in")
			fmt.Printf("start here: %s/auth/google\n", cfg.BackendURL)
			return nil
		}
		fmt.Printf("logged in as %s <%s>\n", sess.User.Name, sess.User.Email)
		return nil

	case "profile":
		user, err := client.Profile(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s> %s\n", user.Name, user.Email, user.AvatarURL)
		return nil

	case "refresh":
		sess := manager.Session()
		if sess.RefreshToken == "" {
			return fmt.Errorf("no refresh token stored")
		}
		accessToken, err := client.Refresh(ctx, sess.RefreshToken)
		if err != nil {
			return err
		}
		manager.Apply(session.Update{AccessToken: &accessToken})
		fmt.Println("access token refreshed")
		return nil

	case "logout":
		if err := client.Logout(ctx); err != nil {
			slog.Warn("server logout failed", "error", err)
		}
		manager.Logout()
		fmt.Println("logged out")
		return nil

	case "route":
		if len(args) != 2 {
			return fmt.Errorf("usage: client route <path>")
		}
		fmt.Println(redirect.NewGuard(manager).Resolve(args[1]))
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: client <command>

commands:
  status                 show the current session
  login <redirect-url>   consume an OAuth redirect URL and hydrate the session
  profile                fetch the profile (refreshing the access token if needed)
  refresh                force a refresh of the access token
  route <path>           resolve where a navigation to <path> would land
  logout                 clear the session

environment: BACKEND_URL, SESSION_FILE (or a .env file)
`)
}
