package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/validate"
)

// Password flags fall back to these variables so secrets stay out of shell
// history.
const (
	envOldPassword = "CARBON_OLD_PASSWORD"
	envNewPassword = "CARBON_NEW_PASSWORD"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func passwdCmd(o *options) *cobra.Command {
	var req api.ChangePasswordRequest
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.OldPassword == "" {
				req.OldPassword = os.Getenv(envOldPassword)
			}
			if req.NewPassword == "" {
				req.NewPassword = os.Getenv(envNewPassword)
			}
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.NewPassword
			}
			if err := validate.New(o.now).Password(req); err != nil {
				return err
			}

			_, svc, closer, err := o.services()
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := svc.Customer.ChangePassword(commandContext(cmd), req); err != nil {
				return friendly(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Đã đổi mật khẩu.")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.OldPassword, "old", "", "current password (or $"+envOldPassword+")")
	cmd.Flags().StringVar(&req.NewPassword, "new", "", "new password (or $"+envNewPassword+")")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm", "", "repeat the new password (defaults to --new)")
	return cmd
}

func profileCmd(o *options) *cobra.Command {
	var upd api.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the account's name, email, phone or date of birth",
		Long: "Fields not given keep their current value. Dates use YYYY-MM-DD and\n" +
			"phone numbers the Vietnamese 10-digit format.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, svc, closer, err := o.services()
			if err != nil {
				return err
			}
			defer closer.Close()
			ctx := commandContext(cmd)

			if prof.UserID == "" {
				return fmt.Errorf("profile has no user_id and the token carries no subject")
			}
			current, err := svc.Users.Get(ctx, prof.UserID)
			if err != nil {
				return friendly(err)
			}

			merged := api.ProfileUpdate{
				FullName:    current.FullName,
				Email:       current.Email,
				PhoneNumber: current.PhoneNumber,
				Dob:         current.Dob,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				merged.FullName = upd.FullName
			}
			if flags.Changed("email") {
				merged.Email = upd.Email
			}
			if flags.Changed("phone") {
				merged.PhoneNumber = upd.PhoneNumber
			}
			if flags.Changed("dob") {
				merged.Dob = upd.Dob
			}
			if err := validate.New(o.now).Profile(merged); err != nil {
				return err
			}

			user, err := svc.Customer.UpdateProfile(ctx, merged)
			if err != nil {
				return friendly(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Đã cập nhật hồ sơ.")
			fmt.Fprintf(out, "  Họ tên:  %s\n  Email:   %s\n", user.FullName, user.Email)
			if user.PhoneNumber != "" {
				fmt.Fprintf(out, "  SĐT:     %s\n", user.PhoneNumber)
			}
			if user.Dob != "" {
				fmt.Fprintf(out, "  Ngày sinh: %s\n", user.Dob)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&upd.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&upd.Email, "email", "", "email address")
	cmd.Flags().StringVar(&upd.PhoneNumber, "phone", "", "phone number")
	cmd.Flags().StringVar(&upd.Dob, "dob", "", "date of birth, YYYY-MM-DD")
	return cmd
}
