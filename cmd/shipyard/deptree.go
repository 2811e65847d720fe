package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/shipyard/pkg/config"
	"github.com/cuemby/shipyard/pkg/progress"
)

func newDeptreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deptree <service>",
		Short: "Render a service's dependency tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := persistentRunConfig(cmd)
			reverse, _ := cmd.Flags().GetBool("reverse")
			return runDeptree(cmd, args[0], reverse, cfg)
		},
	}
	cmd.Flags().BoolP("reverse", "r", false, "render dependents of the service instead of its dependencies")
	return cmd
}

func runDeptree(_ *cobra.Command, svc string, reverse bool, cfg config.RunConfig) error {
	env, g, err := loadEnvironment(cfg)
	if err != nil {
		return err
	}
	if _, ok := env.Services[svc]; !ok {
		return fmt.Errorf("cmd: %q is not a known service", svc)
	}

	tree := g.RenderTree(svc, reverse)
	progress.RenderDepTree(os.Stdout, svc, tree)
	return nil
}
