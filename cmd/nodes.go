package cmd

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mountainsensing/msfetch/core"
	"github.com/mountainsensing/msfetch/state"
	"github.com/spf13/cobra"
)

var errNoNodes = errors.New("none of the given nodes could be resolved")

// nodeCommand builds a command that runs the action returned by build
// against every node given as an argument.
func nodeCommand(use, short string, build func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <node>...",
		Short:   short,
		Args:    cobra.MinimumNArgs(1),
		GroupID: "node",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []core.RuntimeOption
			if debugAddr != "" {
				opts = append(opts, core.WithDebugAddr(debugAddr))
			}
			rt, err := core.NewRuntime(config, opts...)
			if err != nil {
				return err
			}
			if err := state.NodeValidator(args); err != nil {
				rt.Log.Warn("some nodes will be skipped", "error", err)
			}
			nodes, unresolved := rt.Resolver.ResolveAll(cmd.Context(), args)
			if len(nodes) == 0 {
				rt.Close()
				return errNoNodes
			}
			rt.Log.Debug("resolved nodes", "nodes", len(nodes), "unresolved", len(unresolved))
			action, err := build(cmd, rt)
			if err != nil {
				rt.Close()
				return err
			}
			return core.Start(cmd.Context(), rt, args, action)
		},
	}
}

// localLogger is the logger of commands that do not talk to nodes.
func localLogger() (*slog.Logger, io.Closer, error) {
	consoleLevel, err := state.ParseLevel(config.ConsoleLevel)
	if err != nil {
		return nil, nil, err
	}
	fileLevel, err := state.ParseLevel(config.FileLevel)
	if err != nil {
		return nil, nil, err
	}
	return core.NewLogger(core.LogOptions{
		ConsoleLevel: consoleLevel,
		FilePath:     config.LogFile,
		FileLevel:    fileLevel,
	})
}
