package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/tier"
	"github.com/iliyamo/loyalty-rewards/internal/userdata"
	"github.com/iliyamo/loyalty-rewards/internal/validate"
)

// cardView is the digital loyalty card.  Nil fields could not be loaded.
type cardView struct {
	Name              string         `json:"name,omitempty"`
	Email             string         `json:"email"`
	MemberID          string         `json:"member_id,omitempty"`
	Barcode           string         `json:"barcode,omitempty"`
	Points            *int64         `json:"points,omitempty"`
	LifetimePoints    *int64         `json:"lifetime_points,omitempty"`
	Progress          *tier.Progress `json:"tier_progress,omitempty"`
	LoyaltyStatus     string         `json:"loyalty_status"`
	ActivationPending bool           `json:"activation_pending,omitempty"`
	Admin             *bool          `json:"admin,omitempty"`
	Staff             *bool          `json:"staff,omitempty"`
}

func viewCard(email string, snap userdata.Snapshot) cardView {
	v := cardView{
		Email:             email,
		LoyaltyStatus:     snap.LoyaltyStatus.String(),
		ActivationPending: snap.ProfilePending,
		Admin:             snap.IsAdmin,
		Staff:             snap.IsStaff,
	}
	if snap.Profile != nil {
		v.Name = snap.Profile.FullName
	}
	if acc := snap.Loyalty; acc != nil {
		v.MemberID = acc.MemberID
		v.Barcode = acc.BarcodeValue
		v.Points = &acc.CurrentPoints
		v.LifetimePoints = &acc.LifetimePoints
		p := tier.ProgressOf(acc.CurrentTier, acc.LifetimePoints)
		v.Progress = &p
	}
	return v
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "unknown"
	case *b:
		return "yes"
	}
	return "no"
}

func (v cardView) render(w io.Writer) {
	name := v.Name
	if name == "" {
		name = v.Email
	}
	fmt.Fprintln(w, name)
	if v.ActivationPending {
		fmt.Fprintln(w, "Your profile is still being set up. Try again in a moment.")
	}
	switch {
	case v.Progress != nil:
		fmt.Fprintf(w, "Member ID:  %s\n", v.MemberID)
		fmt.Fprintf(w, "Barcode:    %s\n", v.Barcode)
		fmt.Fprintf(w, "Points:     %d (lifetime %d)\n", *v.Points, *v.LifetimePoints)
		fmt.Fprintf(w, "Tier:       %s\n", v.Progress.Current.Label())
		if v.Progress.Next != "" {
			fmt.Fprintf(w, "Next tier:  %s in %d points (%.0f%%)\n",
				v.Progress.Next.Label(), v.Progress.Remaining, v.Progress.Percent)
		} else {
			fmt.Fprintln(w, "Next tier:  top tier reached")
		}
		if v.LoyaltyStatus != userdata.LoyaltyActive.String() {
			fmt.Fprintln(w, "Card not yet activated.")
		}
	case v.LoyaltyStatus == userdata.LoyaltyNotActivated.String():
		fmt.Fprintln(w, "Loyalty card not yet activated.")
	default:
		fmt.Fprintln(w, "Loyalty card unavailable right now.")
	}
	fmt.Fprintf(w, "Staff: %s  Admin: %s\n", yesNo(v.Staff), yesNo(v.Admin))
}

func NewCardCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "card",
		Short: "Show your loyalty card, points and tier progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			// Init already started a sync for this user.
			ctx := cmd.Context()
			select {
			case <-a.store.Settled():
			case <-ctx.Done():
				return ctx.Err()
			}
			snap := a.data.Snapshot()
			if snap.UserID != a.sess.User.ID {
				if !a.data.Sync(ctx, a.sess.User.ID) {
					return errors.New("your session changed while the card was loading, run the command again")
				}
				snap = a.data.Snapshot()
			}
			v := viewCard(a.sess.User.Email, snap)
			return opts.output(cmd).Success(v, v.render)
		},
	}
}

// ProfileOptions holds flags for the profile command.
type ProfileOptions struct {
	*RootOptions
	FullName string
	Phone    string
}

func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Long: `Show or edit your profile.  Only the flags given are changed; pass
--phone "" to remove the stored number.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			uid := a.sess.User.ID

			p, err := a.gw.ProfileByID(ctx, uid)
			if err != nil {
				return err
			}

			var u model.ProfileUpdate
			if cmd.Flags().Changed("name") {
				name := strings.TrimSpace(opts.FullName)
				u.FullName = &name
			}
			if cmd.Flags().Changed("phone") {
				phone := strings.TrimSpace(opts.Phone)
				u.Phone = &phone
			}
			if u.FullName != nil || u.Phone != nil {
				check := validate.ProfileEdit{FullName: p.FullName}
				if u.FullName != nil {
					check.FullName = *u.FullName
				}
				if u.Phone != nil {
					check.Phone = *u.Phone
				}
				if errs := validate.CheckProfileEdit(check); !errs.OK() {
					return invalid(errs)
				}
				if p, err = a.gw.UpdateProfile(ctx, uid, u); err != nil {
					return err
				}
			}

			return opts.output(cmd).Success(p, func(w io.Writer) {
				fmt.Fprintf(w, "Name:   %s\n", p.FullName)
				fmt.Fprintf(w, "Email:  %s\n", p.Email)
				phone := "-"
				if p.Phone != nil && *p.Phone != "" {
					phone = *p.Phone
				}
				fmt.Fprintf(w, "Phone:  %s\n", phone)
			})
		},
	}

	cmd.Flags().StringVar(&opts.FullName, "name", "", "new full name")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "new mobile number")

	return cmd
}
