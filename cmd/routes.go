package cmd

import (
	"github.com/mountainsensing/msfetch/core"
	"github.com/mountainsensing/msfetch/state"
	"github.com/spf13/cobra"
)

var getRoutesCmd = nodeCommand("get-routes", "Get the routes of nodes, optionally drawing them as a graph",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		graph, _ := cmd.Flags().GetString("graph")
		return &core.GetRoutes{
			Transport: rt.Transport,
			Topology:  core.NewTopology(state.ShortIDWidth, rt.Log),
			GraphPath: graph,
		}, nil
	})

func init() {
	getRoutesCmd.Flags().StringP("graph", "g", "", "write the routes of every node to this file in DOT format")
	rootCmd.AddCommand(getRoutesCmd)
}
