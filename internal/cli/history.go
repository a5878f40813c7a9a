package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

const dateTime = "2006-01-02 15:04"

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Kind  string
	Limit int
}

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show points, purchases or redemptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 0 {
				return usageError("--limit must not be negative")
			}
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, out := cmd.Context(), opts.output(cmd)

			switch opts.Kind {
			case "points":
				rows, err := a.gw.PointsHistory(ctx, opts.Limit)
				if err != nil {
					return err
				}
				return out.Success(rows, func(w io.Writer) {
					tw := table(w)
					fmt.Fprintln(tw, "DATE\tPOINTS\tTYPE\tDESCRIPTION\t")
					for _, e := range rows {
						fmt.Fprintf(tw, "%s\t%+d\t%s\t%s\t\n", e.CreatedAt.Local().Format(dateTime), e.Points, e.TransactionType, e.Description)
					}
					tw.Flush()
				})
			case "purchases":
				rows, err := a.gw.Purchases(ctx, opts.Limit)
				if err != nil {
					return err
				}
				return out.Success(rows, func(w io.Writer) {
					tw := table(w)
					fmt.Fprintln(tw, "DATE\tRECEIPT\tTOTAL\tPOINTS\t")
					for _, p := range rows {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t\n", p.PurchaseDate.Local().Format(dateTime), p.ReceiptReference, rands(p.TotalAmount), p.PointsEarned)
					}
					tw.Flush()
				})
			case "redemptions":
				rows, err := a.gw.Redemptions(ctx, opts.Limit)
				if err != nil {
					return err
				}
				return out.Success(rows, func(w io.Writer) {
					tw := table(w)
					fmt.Fprintln(tw, "DATE\tCODE\tPOINTS\tSTATUS\tEXPIRES\t")
					for _, r := range rows {
						fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t\n", r.CreatedAt.Local().Format(dateTime), r.RedemptionCode, r.PointsSpent, r.Status, r.ExpiresAt.Local().Format(dateTime))
					}
					tw.Flush()
				})
			}
			return usageError(fmt.Sprintf("invalid --kind %q: must be points, purchases or redemptions", opts.Kind))
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "points", "points|purchases|redemptions")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (gateway default when 0)")

	return cmd
}

// rands formats cents as an amount in rand.
func rands(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%sR%d.%02d", sign, cents/100, cents%100)
}

// NotificationsOptions holds flags for the notifications command.
type NotificationsOptions struct {
	*RootOptions
	Limit   int
	Read    []string
	ReadAll bool
}

func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NotificationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show your inbox, or mark messages read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, out := cmd.Context(), opts.output(cmd)

			if opts.ReadAll || len(opts.Read) > 0 {
				ids := opts.Read
				if opts.ReadAll {
					ids = nil
				}
				n, err := a.gw.MarkRead(ctx, ids)
				if err != nil {
					return err
				}
				return out.Success(map[string]int64{"updated": n}, func(w io.Writer) {
					fmt.Fprintf(w, "Marked %d notification(s) read.\n", n)
				})
			}

			rows, err := a.gw.Notifications(ctx, opts.Limit)
			if err != nil {
				return err
			}
			return out.Success(rows, func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintln(w, "No notifications.")
					return
				}
				for _, n := range rows {
					mark := " "
					if !n.IsRead {
						mark = "*"
					}
					fmt.Fprintf(w, "%s %s  %s  [%s]\n", mark, n.CreatedAt.Local().Format(dateTime), n.Title, n.ID)
					fmt.Fprintf(w, "    %s\n", n.Message)
				}
			})
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (gateway default when 0)")
	cmd.Flags().StringSliceVar(&opts.Read, "read", nil, "mark these notification ids read")
	cmd.Flags().BoolVar(&opts.ReadAll, "read-all", false, "mark every notification read")

	return cmd
}

// prefFields maps --set keys to preference switches.
var prefFields = map[string]func(p *model.NotificationPreferences) *bool{
	"push":     func(p *model.NotificationPreferences) *bool { return &p.PushEnabled },
	"email":    func(p *model.NotificationPreferences) *bool { return &p.EmailEnabled },
	"sms":      func(p *model.NotificationPreferences) *bool { return &p.SMSEnabled },
	"whatsapp": func(p *model.NotificationPreferences) *bool { return &p.WhatsAppEnabled },
	"promo":    func(p *model.NotificationPreferences) *bool { return &p.PromoNotifications },
	"points":   func(p *model.NotificationPreferences) *bool { return &p.PointsNotifications },
	"tier":     func(p *model.NotificationPreferences) *bool { return &p.TierNotifications },
}

var prefOrder = []string{"push", "email", "sms", "whatsapp", "promo", "points", "tier"}

// applyPrefs applies key=bool assignments to p.
func applyPrefs(p *model.NotificationPreferences, sets []string) error {
	for _, s := range sets {
		key, val, ok := strings.Cut(s, "=")
		field, known := prefFields[strings.ToLower(strings.TrimSpace(key))]
		if !ok || !known {
			return usageError(fmt.Sprintf("invalid --set %q: want one of %v as key=true|false", s, prefOrder))
		}
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return usageError(fmt.Sprintf("invalid --set %q: %q is not true or false", s, val))
		}
		*field(p) = b
	}
	return nil
}

func NewPrefsCommand(opts *RootOptions) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change notification preferences",
		Long: `Show or change notification preferences.

Example:
  loyalty prefs --set sms=true --set promo=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			p, err := a.gw.Preferences(ctx)
			if err != nil {
				return err
			}
			if len(sets) > 0 {
				if err := applyPrefs(&p, sets); err != nil {
					return err
				}
				if p, err = a.gw.SavePreferences(ctx, p); err != nil {
					return err
				}
			}
			return opts.output(cmd).Success(p, func(w io.Writer) {
				for _, k := range prefOrder {
					state := "off"
					if *prefFields[k](&p) {
						state = "on"
					}
					fmt.Fprintf(w, "%-9s %s\n", k, state)
				}
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "key=true|false (push, email, sms, whatsapp, promo, points, tier)")

	return cmd
}
