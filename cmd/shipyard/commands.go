package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/shipyard/pkg/types"
)

// newActionCommand builds one of the container-action subcommands
// (status, pull, start, stop, kill, restart and clean all share the
// same load-resolve-run shape; only their flags and the action they
// drive differ). logs and deptree have their own builders.
func newActionCommand(use, short string, action types.Action, destructive bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [targets...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := persistentRunConfig(cmd)
			if action == types.ActionStatus {
				if validate, _ := cmd.Flags().GetBool("validate"); validate {
					return runValidate(cfg)
				}
			}
			cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
			cfg.IgnoreOrder, _ = cmd.Flags().GetBool("ignore-order")
			cfg.Only, _ = cmd.Flags().GetBool("only")
			if cmd.Flags().Lookup("refresh-images") != nil {
				cfg.RefreshImages, _ = cmd.Flags().GetBool("refresh-images")
			}
			if cmd.Flags().Lookup("reuse") != nil {
				cfg.Reuse, _ = cmd.Flags().GetBool("reuse")
			}
			if destructive {
				cfg.ExpandServices, _ = cmd.Flags().GetBool("expand-services")
				cfg.All, _ = cmd.Flags().GetBool("all")
			}
			return runPlay(cmd, args, action, cfg)
		},
	}

	cmd.Flags().IntP("concurrency", "c", 0, "worker pool size per dependency layer (0 = unbounded)")
	cmd.Flags().BoolP("ignore-order", "i", false, "collapse the selection into a single layer, ignoring dependency order")
	cmd.Flags().BoolP("only", "o", false, "restrict strictly to the named targets, without pulling in dependencies")

	if action == types.ActionStart || action == types.ActionRestart || action == types.ActionPull {
		cmd.Flags().BoolP("refresh-images", "r", false, "pull even if the image is already present on the ship")
	}
	if action == types.ActionRestart {
		cmd.Flags().Bool("reuse", false, "stop+start the existing container instead of replacing it, when its image is unchanged")
	}
	if action == types.ActionStatus {
		cmd.Flags().Bool("validate", false, "check the environment document for every invariant violation, without contacting any ship")
	}
	if destructive {
		cmd.Flags().Bool("expand-services", false, "allow a service-name target to expand to every one of its instances")
		cmd.Flags().Bool("all", false, "act on every non-omitted service's instances")
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(newActionCommand("status", "Report the observed state of targets", types.ActionStatus, false))
	rootCmd.AddCommand(newActionCommand("pull", "Pull images for targets", types.ActionPull, false))
	rootCmd.AddCommand(newActionCommand("start", "Start targets, creating containers as needed", types.ActionStart, false))
	rootCmd.AddCommand(newActionCommand("stop", "Stop targets gracefully", types.ActionStop, true))
	rootCmd.AddCommand(newActionCommand("kill", "Send SIGKILL to targets immediately", types.ActionKill, true))
	rootCmd.AddCommand(newActionCommand("restart", "Recreate and restart targets", types.ActionRestart, true))
	rootCmd.AddCommand(newActionCommand("clean", "Remove stopped targets", types.ActionClean, true))

	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newDeptreeCommand())
}
