package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/staysync/staysync/internal/auth"
	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/validate"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage API users",
	}
	cmd.AddCommand(newUsersCreateCmd(a), newUsersListCmd(a), newUsersDisableCmd(a))
	return cmd
}

// usersService opens the document store for a one-off command.
func (a *app) usersService() (*auth.Service, func(), error) {
	database, err := a.openLedger()
	if err != nil {
		return nil, nil, err
	}
	docs, err := a.openDocs(database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return auth.NewService(docs, validate.New()), func() { database.Close() }, nil
}

func newUsersCreateCmd(a *app) *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a user with a generated password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, done, err := a.usersService()
			if err != nil {
				return err
			}
			defer done()

			password, err := generatePassword(16)
			if err != nil {
				return fmt.Errorf("generating password: %w", err)
			}
			u, err := users.Register(cmd.Context(), args[0], password, name, role)
			if err != nil {
				return err
			}
			printCredentials(u, password)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&role, "role", "r", model.RoleInspector, "role: admin, manager or inspector")
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, done, err := a.usersService()
			if err != nil {
				return err
			}
			defer done()

			list, err := users.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tNAME\tROLE\tSTATUS\tCREATED")
			for _, u := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.Email, u.Name, u.Role, u.Status, u.CreatedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}
}

func newUsersDisableCmd(a *app) *cobra.Command {
	var enable bool
	cmd := &cobra.Command{
		Use:   "disable <email>",
		Short: "Disable a user, or re-enable with --enable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, done, err := a.usersService()
			if err != nil {
				return err
			}
			defer done()

			status := model.UserDisabled
			if enable {
				status = model.UserActive
			}
			u, err := users.SetStatus(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}
			fmt.Printf("%s is now %s\n", u.Email, u.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enable, "enable", false, "re-enable the user")
	return cmd
}

// bootstrapAdmin creates an admin account when no users exist yet.
func bootstrapAdmin(ctx context.Context, users *auth.Service, email string) error {
	list, err := users.List(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	if len(list) > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	u, err := users.Register(ctx, email, password, "Administrator", model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	printCredentials(u, password)
	fmt.Println()
	return nil
}

// printCredentials prints a new account's password, which is not stored in plain text.
func printCredentials(u model.User, password string) {
	fmt.Println("Account created:")
	fmt.Printf("  Email:    %s\n", u.Email)
	fmt.Printf("  Role:     %s\n", u.Role)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
