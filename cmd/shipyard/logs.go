package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/shipyard/pkg/config"
	"github.com/cuemby/shipyard/pkg/container"
)

func newLogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <container>",
		Short: "Stream a container's stdout/stderr tail from its ship's daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := persistentRunConfig(cmd)
			cfg.LogFollow, _ = cmd.Flags().GetBool("follow")
			cfg.LogTail, _ = cmd.Flags().GetInt("tail")
			return runLogs(cmd, args[0], cfg)
		},
	}
	cmd.Flags().BoolP("follow", "F", false, "keep streaming as new output arrives")
	cmd.Flags().IntP("tail", "n", 100, "number of lines from the end to show; 0 means all")
	return cmd
}

func runLogs(cmd *cobra.Command, name string, cfg config.RunConfig) error {
	env, _, err := loadEnvironment(cfg)
	if err != nil {
		return err
	}

	c := config.FindContainer(env, name)
	if c == nil {
		return fmt.Errorf("cmd: %q is not a known container", name)
	}

	adapter, err := buildAdapter(env, cfg)
	if err != nil {
		return err
	}
	mgr := &container.Manager{Adapter: adapter, Env: env}

	stream, err := mgr.Logs(cmd.Context(), c, cfg.LogFollow, cfg.LogTail)
	if err != nil {
		return err
	}
	defer stream.Close()

	_, err = io.Copy(os.Stdout, stream)
	return err
}
