package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/app"
	"taskflow/internal/domain"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd(opts))
	cmd.AddCommand(newUserListCmd(opts))
	return cmd
}

func newUserCreateCmd(opts *rootOptions) *cobra.Command {
	var name, email, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long: "Creates a user with the given role. The password is prompted for on a " +
			"terminal, or read as one line from piped stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				roleID, err := resolveRoleID(cmd.Context(), a, role)
				if err != nil {
					return err
				}
				u, err := a.Services.User.Seed(cmd.Context(), domain.CreateUserRequest{
					Name:     name,
					Email:    email,
					Password: password,
					RoleID:   roleID,
				})
				if err != nil {
					return describeError(err)
				}
				return printUsers(cmd, opts, []domain.User{*u})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&role, "role", "", "Role name or ID")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newUserListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				users, err := a.Services.User.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				return printUsers(cmd, opts, users)
			})
		},
	}
}

// resolveRoleID accepts a role ID or a case-insensitive role name.
func resolveRoleID(ctx context.Context, a *app.App, ref string) (string, error) {
	roles, err := a.Services.Role.ListAll(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r.ID == ref || strings.EqualFold(r.Name, ref) {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("role %q not found", ref)
}

func printUsers(cmd *cobra.Command, opts *rootOptions, users []domain.User) error {
	if opts.output == "json" {
		out := make([]map[string]string, 0, len(users))
		for _, u := range users {
			out = append(out, map[string]string{
				"id":        u.ID,
				"name":      u.Name,
				"email":     u.Email,
				"roleId":    u.RoleID,
				"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Name, u.Email, u.RoleID})
	}
	return printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "EMAIL", "ROLE"}, rows)
}

// describeError flattens field validation errors into one line.
func describeError(err error) error {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) == 0 {
		return err
	}
	keys := make([]string, 0, len(ve.Fields))
	for k := range ve.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+ve.Fields[k])
	}
	return fmt.Errorf("%s (%s)", ve.Message, strings.Join(parts, "; "))
}
