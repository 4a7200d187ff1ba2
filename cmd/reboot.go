package cmd

import (
	"github.com/mountainsensing/msfetch/core"
	"github.com/spf13/cobra"
)

var getRebootCmd = nodeCommand("get-reboot", "Get how many times nodes have rebooted",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		return &core.GetReboot{Transport: rt.Transport}, nil
	})

var forceRebootCmd = nodeCommand("force-reboot", "Reboot nodes",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		return &core.ForceReboot{Transport: rt.Transport}, nil
	})

func init() {
	rootCmd.AddCommand(getRebootCmd, forceRebootCmd)
}
