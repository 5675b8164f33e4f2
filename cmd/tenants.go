package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aaryan23/cold-email-os/internal/model"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("kb"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tenants, err := st.ListTenants(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tenantTable(tenants))
		return nil
	},
}

var tenantsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := strings.TrimSpace(args[0])
		if name == "" {
			return eris.New("tenant name is required")
		}
		if err := cfg.Validate("kb"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		t, err := st.CreateTenant(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.ID)
		return nil
	},
}

var tenantsStatusCmd = &cobra.Command{
	Use:   "status <tenant-id> <status>",
	Short: "Set a tenant's lifecycle status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		status := model.TenantStatus(strings.ToUpper(args[1]))
		if !status.Valid() {
			return eris.Errorf("unknown tenant status %q", args[1])
		}
		if err := cfg.Validate("kb"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		return st.UpdateTenantStatus(ctx, args[0], status)
	},
}

var tenantsDeleteCmd = &cobra.Command{
	Use:   "delete <tenant-id>",
	Short: "Delete a tenant with its reports, generations and knowledge base documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("kb"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteTenant(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted tenant %s\n", args[0])
		return nil
	},
}

func tenantTable(tenants []model.Tenant) string {
	rows := make([][]string, len(tenants))
	for i, t := range tenants {
		rows[i] = []string{t.ID, t.Name, string(t.Status), t.CreatedAt.Format("2006-01-02 15:04")}
	}
	return renderTable([]string{"ID", "Name", "Status", "Created"}, rows, nil)
}

func init() {
	tenantsCmd.AddCommand(tenantsListCmd, tenantsCreateCmd, tenantsStatusCmd, tenantsDeleteCmd)
	rootCmd.AddCommand(tenantsCmd)
}
