package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func registerCmd(v *viper.Viper) *cobra.Command {
	var r domain.Registration

	cmd := &cobra.Command{
		Use:     "register",
		Short:   "Create a marketplace account",
		Example: `  amc register --username ana --email ana@example.com --password s3cret`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.Password2 == "" {
				r.Password2 = r.Password
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				if err := a.client.Register(ctx, &r); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Account %s created, run amc login.\n", r.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&r.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&r.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&r.Password, "password", "", "password (required)")
	cmd.Flags().StringVar(&r.Password2, "confirm", "", "password confirmation (defaults to --password)")
	cmd.Flags().StringVar(&r.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&r.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&r.Phone, "phone", "", "phone number")
	cobra.CheckErr(cmd.MarkFlagRequired("username"))
	cobra.CheckErr(cmd.MarkFlagRequired("email"))
	cobra.CheckErr(cmd.MarkFlagRequired("password"))

	return cmd
}

func loginCmd(v *viper.Viper) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login USER",
		Short: "Sign in with an email or username",
		Long: "Sign in and store the tokens locally. The favorite cache is\n" +
			"rebuilt from the server after a successful login.",
		Example: `  amc login ana@example.com --password s3cret`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = v.GetString("password")
			}
			creds := domain.Credentials{Password: password}
			if strings.Contains(args[0], "@") {
				creds.Email = args[0]
			} else {
				creds.Username = args[0]
			}

			return run(cmd, v, func(ctx context.Context, a *app) error {
				resp, err := a.client.Login(ctx, creds)
				if err != nil {
					return err
				}

				r, err := a.favorites(ctx)
				if err != nil {
					a.log.Warn("opening favorite cache", "err", err)
				} else {
					r.Resolve(ctx)
				}

				fmt.Fprintf(a.out, "Signed in as %s.\n", resp.User.DisplayName())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (or AMC_PASSWORD)")
	return cmd
}

func logoutCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(ctx context.Context, a *app) error {
				if r, err := a.favorites(ctx); err == nil {
					if err := r.Cache().ReplaceAll(ctx, nil); err != nil {
						a.log.Warn("clearing favorite cache", "err", err)
					}
				}
				if err := a.client.Logout(ctx, a.creds.Credentials().RefreshToken); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Signed out.")
				return nil
			})
		},
	}
}

func whoamiCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and token expiry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(_ context.Context, a *app) error {
				c := a.creds.Credentials()
				if c.Empty() {
					fmt.Fprintln(a.out, "Not signed in.")
					return nil
				}
				if a.json {
					exp, _ := c.ExpiresAt()
					return outputJSON(a.out, map[string]any{"user": c.User, "expires_at": exp})
				}
				return printSession(a.out, &c)
			})
		},
	}
}

func profileCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(ctx context.Context, a *app) error {
				u, err := a.client.Profile(ctx)
				if err != nil {
					return err
				}
				if a.json {
					return outputJSON(a.out, u)
				}
				return printUser(a.out, u)
			})
		},
	}
	root.AddCommand(profileUpdateCmd(v))
	return root
}

func profileUpdateCmd(v *viper.Viper) *cobra.Command {
	var firstName, lastName, email, phone string

	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update profile fields",
		Example: `  amc profile update --phone 0722000000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(ctx context.Context, a *app) error {
				u, err := a.client.Profile(ctx)
				if err != nil {
					return err
				}
				changed := false
				set := func(flag string, dst *string, val string) {
					if cmd.Flags().Changed(flag) {
						*dst = val
						changed = true
					}
				}
				set("first-name", &u.FirstName, firstName)
				set("last-name", &u.LastName, lastName)
				set("email", &u.Email, email)
				set("phone", &u.Phone, phone)
				if !changed {
					return errors.New("nothing to update")
				}

				updated, err := a.client.UpdateProfile(ctx, u)
				if err != nil {
					return err
				}
				if a.json {
					return outputJSON(a.out, updated)
				}
				return printUser(a.out, updated)
			})
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	return cmd
}
