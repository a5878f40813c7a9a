package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/validate"
)

// sessionView is what login and verify print.
type sessionView struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
}

func viewSession(s *gateway.Session) sessionView {
	return sessionView{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		ExpiresAt:    time.Unix(s.ExpiresAt, 0).UTC(),
		RefreshToken: s.RefreshToken,
	}
}

func printSession(out *OutputFormatter, s *gateway.Session) error {
	if s == nil {
		return errSignedOut
	}
	v := viewSession(s)
	return out.Success(v, func(w io.Writer) {
		fmt.Fprintf(w, "Signed in as %s\n", v.Email)
		fmt.Fprintln(w, "To stay signed in for later commands:")
		fmt.Fprintf(w, "  export LOYALTY_REFRESH_TOKEN=%s\n", v.RefreshToken)
	})
}

// SignupOptions holds flags for the signup command.
type SignupOptions struct {
	*RootOptions
	Email     string
	Password  string
	FullName  string
	Phone     string
	IDNumber  string
	StaffCode string
}

func NewSignupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account.  A 6-digit code is emailed; confirm it with
"loyalty verify" to activate the card.

All flags except --staff-code are required.  The national ID number is only
ever stored hashed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := gateway.SignUpRequest{
				Email:     strings.TrimSpace(opts.Email),
				Password:  opts.Password,
				FullName:  strings.TrimSpace(opts.FullName),
				Phone:     strings.TrimSpace(opts.Phone),
				IDNumber:  strings.TrimSpace(opts.IDNumber),
				StaffCode: strings.TrimSpace(opts.StaffCode),
			}
			if errs := validate.CheckSignup(validate.Signup{
				FullName: req.FullName, Email: req.Email, Password: req.Password,
				Phone: req.Phone, IDNumber: req.IDNumber,
			}); !errs.OK() {
				return invalid(errs)
			}
			if err := opts.gateway().SignUp(cmd.Context(), req); err != nil {
				return err
			}
			data := map[string]interface{}{"email": req.Email, "verification_required": true}
			return opts.output(cmd).Success(data, func(w io.Writer) {
				fmt.Fprintf(w, "Account created. We sent a code to %s.\n", req.Email)
				fmt.Fprintf(w, "Confirm it with: loyalty verify --email %s --code <code>\n", req.Email)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (8+ characters)")
	cmd.Flags().StringVar(&opts.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "mobile number, +27... or 0...")
	cmd.Flags().StringVar(&opts.IDNumber, "id-number", "", "13-digit national ID number")
	cmd.Flags().StringVar(&opts.StaffCode, "staff-code", "", "code of the staff member who referred you")

	return cmd
}

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Email   string
	Code    string
	Purpose string
	Resend  bool
}

func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm an emailed code, or ask for a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(opts.Email)
			if msg := validate.Email(email); msg != "" {
				return invalid(validate.Errors{"email": msg})
			}
			gw := opts.gateway()

			if opts.Resend {
				if err := gw.ResendOTP(cmd.Context(), email); err != nil {
					return err
				}
				return opts.output(cmd).Success(map[string]string{"email": email}, func(w io.Writer) {
					fmt.Fprintf(w, "If %s has an account, a new code is on its way.\n", email)
				})
			}

			if msg := validate.OTP(opts.Code); msg != "" {
				return invalid(validate.Errors{"code": msg})
			}
			if opts.Purpose != gateway.OTPSignup && opts.Purpose != gateway.OTPEmail {
				return usageError(fmt.Sprintf("invalid --type %q: must be signup or email", opts.Purpose))
			}
			if err := gw.VerifyOTP(cmd.Context(), email, strings.TrimSpace(opts.Code), opts.Purpose); err != nil {
				return err
			}
			return printSession(opts.output(cmd), gw.Session())
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "email address the code was sent to")
	cmd.Flags().StringVar(&opts.Code, "code", "", "6-digit code")
	cmd.Flags().StringVar(&opts.Purpose, "type", gateway.OTPSignup, "code purpose (signup|email)")
	cmd.Flags().BoolVar(&opts.Resend, "resend", false, "send a new code instead of verifying")

	return cmd
}

// ResetPasswordOptions holds flags for the reset-password command.
type ResetPasswordOptions struct {
	*RootOptions
	Email    string
	Code     string
	Password string
}

func NewResetPasswordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetPasswordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten password with an emailed code",
		Long: `Reset a forgotten password.  Without --code a reset code is emailed;
run again with the code and the new password to finish.  Every other session
is signed out.

Example:
  loyalty reset-password --email you@example.com
  loyalty reset-password --email you@example.com --code 123456 --password <new>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(opts.Email)
			if !cmd.Flags().Changed("code") {
				if msg := validate.Email(email); msg != "" {
					return invalid(validate.Errors{"email": msg})
				}
				if err := opts.gateway().ResetPasswordForEmail(cmd.Context(), email); err != nil {
					return err
				}
				return opts.output(cmd).Success(map[string]string{"email": email}, func(w io.Writer) {
					fmt.Fprintf(w, "If %s has an account, a reset code is on its way.\n", email)
					fmt.Fprintf(w, "Finish with: loyalty reset-password --email %s --code <code> --password <new>\n", email)
				})
			}

			code := strings.TrimSpace(opts.Code)
			if errs := validate.CheckPasswordReset(email, code, opts.Password); !errs.OK() {
				return invalid(errs)
			}
			gw := opts.gateway()
			if err := gw.ResetPassword(cmd.Context(), email, code, opts.Password); err != nil {
				return err
			}
			return printSession(opts.output(cmd), gw.Session())
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "email address of the account")
	cmd.Flags().StringVar(&opts.Code, "code", "", "6-digit reset code")
	cmd.Flags().StringVar(&opts.Password, "password", "", "new password (8+ characters)")

	return cmd
}

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Email    string
	Password string
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(opts.Email)
			if errs := validate.CheckLogin(email, opts.Password); !errs.OK() {
				return invalid(errs)
			}
			gw := opts.gateway()
			if err := gw.SignInWithPassword(cmd.Context(), email, opts.Password); err != nil {
				return err
			}
			return printSession(opts.output(cmd), gw.Session())
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password")

	return cmd
}

func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := <-a.store.SignOut(cmd.Context()); err != nil {
				return err
			}
			return opts.output(cmd).Success(map[string]bool{"signed_out": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Signed out. Unset LOYALTY_REFRESH_TOKEN.")
			})
		},
	}
}
