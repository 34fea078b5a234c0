package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"techblok-cli/internal/listctl"
	"techblok-cli/internal/model"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Completed work orders",
	}
	cmd.AddCommand(newTasksListCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var (
		search   string
		page     int
		pageSize int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed tasks, filtered and paginated",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := rt.ctx()
			defer cancel()
			if err := rt.requireSession(ctx); err != nil {
				return err
			}

			if pageSize < 1 {
				pageSize = rt.cfg.TasksPageSize
			}
			ctl := listctl.New(pageSize, model.Task.SearchFields)
			if err := ctl.Load(ctx, func(ctx context.Context) ([]model.Task, error) {
				return rt.client.CompletedTasks(ctx)
			}); err != nil {
				return err
			}
			ctl.SetSearchTerm(search)
			ctl.SetPage(page)

			if all {
				return printJSON(cmd.OutOrStdout(), ctl.Filtered(), app.Pretty)
			}
			first, last, total := ctl.Range()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"tasks": ctl.VisibleSlice(),
				"page":  ctl.Page(),
				"pages": ctl.PageCount(),
				"shown": fmt.Sprintf("%d-%d of %d", first, last, total),
			}, app.Pretty)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by dispatcher, address, worker or comments")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "Print every matching task, unpaginated")
	return cmd
}
