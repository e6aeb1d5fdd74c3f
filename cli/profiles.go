package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deevus/carbon-tui/internal/tunnel"
	"github.com/deevus/carbon-tui/views"
)

func profilesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROLE\tURL\tSSH")
			for _, name := range cfg.ProfileNames() {
				p := cfg.Profiles[name]
				ssh := "-"
				if p.SSH != nil {
					ssh = p.SSH.Host
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, views.RoleLabel(p.Role), p.BaseURL, ssh)
			}
			return w.Flush()
		},
	}
}

func hostkeyCmd(o *options) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "hostkey [host]",
		Short: "Print the SSH host key fingerprint to pin in the config",
		Long: "Connects to the SSH server and prints its SHA256 host key fingerprint.\n" +
			"Without a host argument the selected profile's ssh host is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := ""
			if len(args) == 1 {
				host = args[0]
			} else {
				name, prof, err := o.resolve()
				if err != nil {
					return err
				}
				if prof.SSH == nil {
					return fmt.Errorf("profile %q has no ssh section", name)
				}
				host = prof.SSH.Host
				if !cmd.Flags().Changed("port") {
					port = prof.SSH.Port
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			fp, err := tunnel.ScanHostKey(ctx, host, port)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "host_key_fingerprint = %q\n", fp)
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 22, "SSH port")
	return cmd
}
