package cmd

import (
	"github.com/mountainsensing/msfetch/core"
	"github.com/spf13/cobra"
)

var getDateCmd = nodeCommand("get-date", "Get the clock of nodes and how far it is from ours",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		return &core.GetDate{Transport: rt.Transport}, nil
	})

var setDateCmd = nodeCommand("set-date", "Set the clock of nodes to ours",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		action := &core.SetDate{Transport: rt.Transport}
		if cmd.Flags().Changed("epoch") {
			epoch, _ := cmd.Flags().GetInt64("epoch")
			action.Epoch = &epoch
		}
		return action, nil
	})

var getUptimeCmd = nodeCommand("get-uptime", "Get how long nodes have been running",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		return &core.GetUptime{Transport: rt.Transport}, nil
	})

func init() {
	setDateCmd.Flags().Int64P("epoch", "e", 0, "unix time to set instead of the current time")
	rootCmd.AddCommand(getDateCmd, setDateCmd, getUptimeCmd)
}
