package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chatd/internal/hub"
	"chatd/internal/manager"
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <model-id>",
		Short: "Download and validate a catalog model in the foreground",
		Long: `Download a catalog model into the cache, validate it by loading it once and
report progress until it finishes.

Examples:
  chatd download Qwen/Qwen2.5-VL-3B-Instruct
  chatd download THUDM/chatglm3-6b --source modelscope`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcName, _ := cmd.Flags().GetString("source")
			src, err := hub.ParseSource(srcName)
			if err != nil {
				return err
			}
			_, _, mgr, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			st, err := mgr.Download(ctx, args[0], src, func(pct int) {
				fmt.Fprintf(out, "%s: %d%%\n", args[0], pct)
			})
			closeErr := mgr.Close(ctx)
			if err != nil {
				return err
			}
			if st.State == manager.StateError {
				return fmt.Errorf("download %s failed: %s", args[0], st.Error)
			}
			fmt.Fprintf(out, "%s: downloaded\n", args[0])
			return closeErr
		},
	}
	cmd.Flags().String("source", string(hub.HuggingFace), "hub to download from: huggingface|modelscope")
	return cmd
}
