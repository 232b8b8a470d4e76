package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	slugpkg "github.com/dmitrymomot/tenantkit/pkg/slug"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/platform"
	"github.com/dmitrymomot/tenantkit/svc/provisioning"
)

func newProvisionCommand(a *app) *cobra.Command {
	var (
		name   string
		suffix int
	)

	cmd := &cobra.Command{
		Use:   "provision <slug>",
		Short: "Create a tenant schema and register it in the directory",
		Long: "Create a tenant schema and register it in the directory.\n" +
			"Pass --name without a slug argument to derive the slug from the name;\n" +
			"--suffix appends random characters to a derived slug.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, err := slugArg(args, name, suffix)
			if err != nil {
				return err
			}
			return a.withPlatform(cmd.Context(), func(p *platform.Platform) error {
				t, err := p.Provisioning.Provision(cmd.Context(), slug, name)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "provisioned %s (%s) in schema %s\n", t.Slug, t.TenantID, t.SchemaName)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name, defaults to the slug")
	cmd.Flags().IntVar(&suffix, "suffix", 0, "Random suffix length for a slug derived from --name")
	return cmd
}

func slugArg(args []string, name string, suffix int) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	var opts []slugpkg.Option
	if suffix > 0 {
		opts = append(opts, slugpkg.WithSuffix(suffix))
	}
	if slug := provisioning.SuggestSlug(name, opts...); slug != "" {
		return slug, nil
	}
	return "", errors.New("a slug argument or a --name to derive it from is required")
}

func newListCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants in the directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			return a.withPlatform(cmd.Context(), func(p *platform.Platform) error {
				entries, err := p.Provisioning.List(cmd.Context())
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), format, entries)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(formatTable), "Output format: table, json or yaml")
	return cmd
}

func newActivationCommand(a *app, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <tenant>",
		Short: fmt.Sprintf("Mark a tenant %s by id or slug", map[bool]string{true: "active", false: "inactive"}[active]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPlatform(cmd.Context(), func(p *platform.Platform) error {
				entry, err := lookup(cmd.Context(), p, args[0])
				if err != nil {
					return err
				}
				if active {
					err = p.Provisioning.Activate(cmd.Context(), entry.ID)
				} else {
					err = p.Provisioning.Deactivate(cmd.Context(), entry.ID)
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %sd\n", entry.Slug, use)
				return err
			})
		},
	}
}

func newAPIKeyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage tenant API keys",
	}

	var name string
	issue := &cobra.Command{
		Use:   "issue <tenant>",
		Short: "Issue an API key; the key is printed once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPlatform(cmd.Context(), func(p *platform.Platform) error {
				entry, err := lookup(cmd.Context(), p, args[0])
				if err != nil {
					return err
				}
				key, err := p.Provisioning.IssueAPIKey(cmd.Context(), entry.ID, name)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
				return err
			})
		},
	}
	issue.Flags().StringVar(&name, "name", "default", "Key name")

	cmd.AddCommand(issue)
	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage tenant bearer tokens",
	}

	var subject string
	issue := &cobra.Command{
		Use:   "issue <tenant>",
		Short: "Issue a signed bearer token for a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPlatform(cmd.Context(), func(p *platform.Platform) error {
				entry, err := lookup(cmd.Context(), p, args[0])
				if err != nil {
					return err
				}
				token, err := p.Tokens.IssueTenantToken(entry.Identity, subject)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			})
		},
	}
	issue.Flags().StringVar(&subject, "subject", "tenantctl", "Token subject")

	cmd.AddCommand(issue)
	return cmd
}

// lookup accepts a tenant id or a slug.
func lookup(ctx context.Context, p *platform.Platform, ref string) (tenant.DirectoryEntry, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return p.Provisioning.Get(ctx, id)
	}
	entry, err := p.Directory.GetBySlug(ctx, ref)
	if errors.Is(err, tenant.ErrUnknownTenant) {
		return tenant.DirectoryEntry{}, fmt.Errorf("%w: %q", provisioning.ErrTenantNotFound, ref)
	}
	return entry, err
}
