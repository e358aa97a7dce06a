// Command storefrontctl drives a storefront session from the terminal. Cart
// and wishlist projections are kept in a state directory so consecutive
// invocations share one session.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/persist"
	persistfile "github.com/utafrali/storefront/internal/persist/file"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

// sessionKey holds the session id minted on first use.
const sessionKey = "session-id"

type globalFlags struct {
	stateDir  string
	apiURL    string
	sessionID string
	logLevel  string
	guard     bool
}

// env carries what every subcommand needs once flags are resolved.
type env struct {
	out       io.Writer
	logger    *slog.Logger
	sessionID string
	cart      *store.CartStore
	wishlist  *store.WishlistStore
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Environ()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(environ []string) *cobra.Command {
	var flags globalFlags
	e := &env{}

	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Inspect and change a storefront session's cart and wishlist",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.init(cmd, environ, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.stateDir, "state-dir", "", "directory holding the local projections (default $STATE_DIR)")
	pf.StringVar(&flags.apiURL, "api-url", "", "commerce API base URL (default $COMMERCE_API_URL)")
	pf.StringVar(&flags.sessionID, "session", "", "session id to act as (default: the one stored in the state dir)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&flags.guard, "discard-stale", false, "ignore responses older than the applied state")

	root.AddCommand(newCartCmd(e), newWishlistCmd(e), newSessionCmd(e))
	return root
}

// init resolves configuration with flag overrides layered on the process
// environment, opens the state directory and builds both stores.
func (e *env) init(cmd *cobra.Command, environ []string, flags globalFlags) error {
	vars := environMap(environ)
	vars["PERSIST_BACKEND"] = config.BackendFile
	if flags.stateDir != "" {
		vars["STATE_DIR"] = flags.stateDir
	}
	if flags.apiURL != "" {
		vars["COMMERCE_API_URL"] = flags.apiURL
	}
	if flags.logLevel != "" {
		vars["LOG_LEVEL"] = flags.logLevel
	}

	cfg, err := config.LoadFrom(vars)
	if err != nil {
		return err
	}

	e.out = cmd.OutOrStdout()
	e.logger = logger.NewWithWriter("storefrontctl", cfg.LogLevel, cmd.ErrOrStderr())

	storage, err := persistfile.NewStorage(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open state dir: %w", err)
	}

	ctx := cmd.Context()
	e.sessionID, err = resolveSession(ctx, storage, flags.sessionID)
	if err != nil {
		return err
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.CommerceTimeout()
	httpCfg.MaxRetries = cfg.CommerceMaxRetries
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("commerce-api"),
		e.logger,
	)
	api := commerce.NewClient(cfg.CommerceAPIURL, breaker, e.logger).ForSession(e.sessionID)

	opts := []store.Option{store.WithLogger(e.logger.With(slog.String("session_id", e.sessionID)))}
	if flags.guard || cfg.DiscardStaleResponses {
		opts = append(opts, store.WithStaleResponseGuard())
	}
	scoped := persist.WithPrefix(storage, persist.SessionPrefix(e.sessionID))
	e.cart = store.NewCartStore(ctx, api, scoped, opts...)
	e.wishlist = store.NewWishlistStore(ctx, api, scoped, opts...)
	return nil
}

// resolveSession returns the explicit id, else the stored one, else a fresh
// id which is stored for the next invocation.
func resolveSession(ctx context.Context, storage persist.Storage, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	raw, err := storage.Load(ctx, sessionKey)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	case !errors.Is(err, persist.ErrNotFound):
		return "", fmt.Errorf("load session id: %w", err)
	}

	id := uuid.NewString()
	if err := storage.Save(ctx, sessionKey, []byte(id)); err != nil {
		return "", fmt.Errorf("save session id: %w", err)
	}
	return id, nil
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSessionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Print the session id used against the commerce API",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintln(e.out, e.sessionID)
			return err
		},
	}
}
