// Package cli implements the loyalty command line client.  Commands that
// need the signed-in user go through the session store and the user-data
// synchronizer, like any other front end would.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"

	"github.com/spf13/cobra"

	"github.com/iliyamo/loyalty-rewards/internal/client"
	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/session"
	"github.com/iliyamo/loyalty-rewards/internal/userdata"
)

// Gateway is the part of *client.Client the commands use.
type Gateway interface {
	gateway.Auth
	gateway.Data
	gateway.Functions
	Session() *gateway.Session
	ResetPasswordForEmail(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, password string) error
	UpdateProfile(ctx context.Context, userID string, u model.ProfileUpdate) (*model.Profile, error)
	Deals(ctx context.Context, category string) ([]model.Deal, error)
	Rewards(ctx context.Context) ([]model.Reward, error)
	Stores(ctx context.Context) ([]model.Store, error)
	Redeem(ctx context.Context, rewardID string) (model.Redemption, error)
	PointsHistory(ctx context.Context, limit int) ([]model.LedgerEntry, error)
	Purchases(ctx context.Context, limit int) ([]model.Purchase, error)
	Redemptions(ctx context.Context, limit int) ([]model.Redemption, error)
	Notifications(ctx context.Context, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, ids []string) (int64, error)
	Preferences(ctx context.Context) (model.NotificationPreferences, error)
	SavePreferences(ctx context.Context, p model.NotificationPreferences) (model.NotificationPreferences, error)
}

// Dialer builds the gateway client for a run.
type Dialer func(cfg config.ClientConfig, log logger.Logger) Gateway

// DialHTTP returns the HTTP client, seeded with the refresh token from the
// environment when there is one.
func DialHTTP(cfg config.ClientConfig, log logger.Logger) Gateway {
	c := client.New(cfg.APIURL, log)
	c.Restore(cfg.RefreshToken)
	return c
}

// RootOptions holds global flags and the per-run wiring.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config config.ClientConfig
	Dial   Dialer

	gw  Gateway
	log logger.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loyalty",
		Short: "Loyalty rewards client",
		Long: `Loyalty rewards client: sign up, check your card and points, browse deals
and rewards, redeem, find stores, manage notifications and reset a
forgotten password.

The gateway URL comes from LOYALTY_API_URL.  After login, export the printed
LOYALTY_REFRESH_TOKEN so later commands run signed in.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return usageError(fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log gateway and session activity to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSignupCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewResetPasswordCommand(opts))
	cmd.AddCommand(NewCardCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewDealsCommand(opts))
	cmd.AddCommand(NewRewardsCommand(opts))
	cmd.AddCommand(NewRedeemCommand(opts))
	cmd.AddCommand(NewStoresCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewNotificationsCommand(opts))
	cmd.AddCommand(NewPrefsCommand(opts))
	cmd.AddCommand(NewDeleteAccountCommand(opts))

	return cmd
}

// Run executes the CLI with args and returns the process exit code.
func Run(args []string, stdout io.Writer, opts *RootOptions) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		out := opts.output(cmd)
		_ = out.Error(err)
	}
	return ExitCode(err)
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) logger() logger.Logger {
	if !o.Verbose {
		return logger.Nop()
	}
	return logger.With(logger.New(o.Config.Env), logger.Fields{"component": "cli"})
}

// gateway dials once per run.
func (o *RootOptions) gateway() Gateway {
	if o.gw == nil {
		o.log = o.logger()
		o.gw = o.Dial(o.Config, o.log)
	}
	return o.gw
}

// app is the signed-in client core for one command.
type app struct {
	gw    Gateway
	store *session.Store
	data  *userdata.Synchronizer
	sess  *gateway.Session
}

func (a *app) Close() { a.store.Close() }

// signedIn restores the session through the session store.  It fails with
// errSignedOut when there is none.
func (o *RootOptions) signedIn(cmd *cobra.Command) (*app, error) {
	gw := o.gateway()
	data := userdata.New(gw, o.log)
	if o.Config.ProfileRetryDelay > 0 {
		data.ProfileRetryDelay = o.Config.ProfileRetryDelay
	}
	store := session.New(gw, data, o.log)
	if o.Config.InitTimeout > 0 {
		store.InitTimeout = o.Config.InitTimeout
	}
	sess := store.Init(cmd.Context())
	if sess == nil {
		store.Close()
		return nil, errSignedOut
	}
	return &app{gw: gw, store: store, data: data, sess: sess}, nil
}
