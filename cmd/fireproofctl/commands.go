package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fireproof/internal/app"
	"fireproof/internal/models"
	"fireproof/pkg/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				n, err := database.Migrate(ctx, c.Pool)
				if err != nil {
					return err
				}
				fmt.Printf("Applied %d migration(s)\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				migrations, err := database.Status(ctx, c.Pool)
				if err != nil {
					return err
				}
				fmt.Printf("%-32s  %-8s  %s\n", "Version", "Status", "Applied at")
				for _, m := range migrations {
					status, at := "Pending", ""
					if m.AppliedAt != nil {
						status, at = "Applied", m.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Printf("%-32s  %-8s  %s\n", m.Version, status, at)
				}
				return nil
			})
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed permissions, default tenant roles and system checklist templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				svc := c.Services
				if err := svc.RBAC.EnsurePermissions(ctx); err != nil {
					return fmt.Errorf("seed permissions: %w", err)
				}

				tenants, err := svc.Tenants.ListActiveIDs(ctx)
				if err != nil {
					return err
				}
				for _, tenantID := range tenants {
					if _, err := svc.RBAC.SeedTenantRoles(ctx, tenantID); err != nil {
						return fmt.Errorf("seed roles for tenant %s: %w", tenantID, err)
					}
				}

				n, err := svc.Checklists.SeedSystemTemplates(ctx)
				if err != nil {
					return fmt.Errorf("seed templates: %w", err)
				}
				fmt.Printf("Seeded permissions, roles for %d tenant(s) and %d system template(s)\n", len(tenants), n)
				return nil
			})
		},
	}
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	var req models.CreateTenantRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant with its default roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				tenant, err := c.Services.Tenants.Create(ctx, &req)
				if err != nil {
					return err
				}
				fmt.Printf("Created tenant %s (%s)\n", tenant.Slug, tenant.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.Name, "name", "", "Tenant display name")
	create.Flags().StringVar(&req.Slug, "slug", "", "URL-safe tenant identifier")
	create.Flags().StringVar(&req.AdminEmail, "admin-email", "", "Email of the first TenantAdmin")
	create.Flags().StringVar(&req.AdminPassword, "admin-password", "", "Password of the first TenantAdmin")
	create.Flags().StringVar(&req.AdminFirstName, "admin-first-name", "", "First name of the first TenantAdmin")
	create.Flags().StringVar(&req.AdminLastName, "admin-last-name", "", "Last name of the first TenantAdmin")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("slug")

	cmd.AddCommand(create)
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var (
		tenant string
		roles  string
		req    models.CreateUserRequest
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user inside a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if roles != "" {
				for _, r := range strings.Split(roles, ",") {
					if r = strings.TrimSpace(r); r != "" {
						req.Roles = append(req.Roles, r)
					}
				}
			}
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				tenantID, err := resolveTenant(ctx, c, tenant)
				if err != nil {
					return err
				}
				user, err := c.Services.Users.Create(ctx, tenantID, &req)
				if err != nil {
					return err
				}
				fmt.Printf("Created user %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&tenant, "tenant", "", "Tenant ID or slug")
	create.Flags().StringVar(&req.Email, "email", "", "Login email")
	create.Flags().StringVar(&req.Password, "password", "", "Initial password")
	create.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	create.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	create.Flags().StringVar(&roles, "roles", "", "Comma separated role names")
	create.Flags().BoolVar(&req.SystemAdmin, "system-admin", false, "Grant cross-tenant administrator rights")
	for _, f := range []string{"tenant", "email", "password", "first-name"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}

func importCmd() *cobra.Command {
	var (
		tenant string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:       "import <extinguishers|locations> <file.csv>",
		Short:     "Import a CSV file synchronously",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{models.ImportExtinguishers, models.ImportLocations},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if kind != models.ImportExtinguishers && kind != models.ImportLocations {
				return fmt.Errorf("unknown import kind %q", kind)
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				tenantID, err := resolveTenant(ctx, c, tenant)
				if err != nil {
					return err
				}
				result, err := c.Importer.Import(ctx, tenantID, kind, dryRun, f)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID or slug")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate rows without writing")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func verifyChainCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "verify-chain",
		Short: "Verify the inspection hash chains of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				tenantID, err := resolveTenant(ctx, c, tenant)
				if err != nil {
					return err
				}
				report, err := c.Services.Inspections.VerifyChain(ctx, tenantID)
				if err != nil {
					return err
				}
				if err := printJSON(report); err != nil {
					return err
				}
				if len(report.Breaks) > 0 {
					return fmt.Errorf("%d broken chain link(s)", len(report.Breaks))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID or slug")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// resolveTenant accepts either a tenant UUID or its slug.
func resolveTenant(ctx context.Context, c *app.Container, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		tenant, err := c.Services.Tenants.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return tenant.ID, nil
	}
	tenant, err := c.Services.Tenants.GetBySlug(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return tenant.ID, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
