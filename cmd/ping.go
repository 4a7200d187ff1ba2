package cmd

import (
	"github.com/mountainsensing/msfetch/core"
	"github.com/spf13/cobra"
)

var pingCmd = nodeCommand("ping", "Check that nodes are up",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		if icmp, _ := cmd.Flags().GetBool("icmp"); icmp {
			pinger, err := core.NewICMPPing(rt.Config.Timeout)
			if err != nil {
				return nil, err
			}
			return pinger, nil
		}
		return &core.Ping{Transport: rt.Transport}, nil
	})

func init() {
	pingCmd.Flags().Bool("icmp", false, "send ICMP echo requests instead of CoAP pings")
	rootCmd.AddCommand(pingCmd)
}
