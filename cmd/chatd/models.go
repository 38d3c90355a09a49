package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chatd/internal/manager"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List catalog models and their cache status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, mgr, err := setup(cmd)
			if err != nil {
				return err
			}
			defer mgr.Close(cmd.Context())
			return printModels(cmd.OutOrStdout(), mgr)
		},
	}
}

func printModels(out io.Writer, mgr *manager.Manager) error {
	models := mgr.ListModels()
	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tTYPE\tSTATUS\tON DISK")
	for _, id := range ids {
		e := models[id]
		status := "-"
		switch {
		case e.Downloading:
			status = fmt.Sprintf("downloading %d%%", e.Progress)
		case e.Downloaded:
			status = "downloaded"
		case e.Error != nil:
			status = "error: " + *e.Error
		}
		disk := "-"
		if e.Downloaded {
			if n, err := mgr.CacheSize(id); err == nil {
				disk = humanize.Bytes(uint64(n))
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, e.Size, e.Type, status, disk)
	}
	return tw.Flush()
}
