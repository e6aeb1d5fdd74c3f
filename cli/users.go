package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/query"
	"github.com/deevus/carbon-tui/views"
)

func usersCmd(o *options) *cobra.Command {
	var page, entry int
	cmd := &cobra.Command{
		Use:   "users <name>",
		Short: "Search users by full name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := o.services()
			if err != nil {
				return err
			}
			defer closer.Close()

			name := strings.Join(args, " ")
			res, err := svc.Users.Search(commandContext(cmd), name, api.ListParams{
				Page:  page,
				Entry: entry,
				Field: "fullName",
				Sort:  string(query.Asc),
			})
			if err != nil {
				return friendly(err)
			}

			out := cmd.OutOrStdout()
			if len(res.Items) == 0 {
				fmt.Fprintf(out, "Không tìm thấy người dùng nào khớp %q.\n", name)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tHỌ TÊN\tEMAIL\tVAI TRÒ")
			for _, u := range res.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, views.RoleLabel(u.Role))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Trang %d/%d · %d người dùng\n", max(res.Page, page), max(res.TotalPages, 1), res.TotalItems)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&entry, "entry", 20, "results per page")
	return cmd
}
