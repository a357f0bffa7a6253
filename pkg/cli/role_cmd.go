package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"taskflow/internal/app"
	"taskflow/internal/domain"
)

func newRoleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles",
	}
	cmd.AddCommand(newRoleCreateCmd(opts))
	cmd.AddCommand(newRoleListCmd(opts))
	return cmd
}

func newRoleCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		name  string
		perms []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.CreateRoleRequest{Name: name}
			for _, p := range perms {
				req.Permissions = append(req.Permissions, domain.Permission(strings.ToUpper(strings.TrimSpace(p))))
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				r, err := a.Services.Role.Seed(cmd.Context(), req)
				if err != nil {
					return describeError(err)
				}
				return printRoles(cmd, opts, []domain.Role{*r})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Role name")
	cmd.Flags().StringSliceVar(&perms, "permissions", nil, "Comma-separated permissions, e.g. CREATE_TASK,VIEW_TASK")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newRoleListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				roles, err := a.Services.Role.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				return printRoles(cmd, opts, roles)
			})
		},
	}
}

func printRoles(cmd *cobra.Command, opts *rootOptions, roles []domain.Role) error {
	if opts.output == "json" {
		type roleJSON struct {
			ID          string              `json:"id"`
			Name        string              `json:"name"`
			Permissions []domain.Permission `json:"permissions"`
		}
		out := make([]roleJSON, 0, len(roles))
		for _, r := range roles {
			out = append(out, roleJSON{ID: r.ID, Name: r.Name, Permissions: r.Permissions})
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
	rows := make([][]string, 0, len(roles))
	for _, r := range roles {
		names := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			names = append(names, string(p))
		}
		rows = append(rows, []string{r.ID, r.Name, strings.Join(names, ",")})
	}
	return printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "PERMISSIONS"}, rows)
}
