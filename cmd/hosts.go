package cmd

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/mountainsensing/msfetch/state"
	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Prints the merged host overrides, one address per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := localLogger()
		if err != nil {
			return err
		}
		defer closer.Close()

		table := state.NewOverrideTable()
		for _, path := range config.Hosts {
			if err := table.LoadFile(path); err != nil {
				log.Warn("ignoring host overrides", "source", path, "error", err)
			}
		}
		networks := state.NewNetworks(config.Networks)

		hosts := make(map[netip.Addr][]string)
		var addrs []netip.Addr
		for _, e := range table.Entries() {
			if _, ok := hosts[e.Addr]; !ok {
				addrs = append(addrs, e.Addr)
			}
			hosts[e.Addr] = append(hosts[e.Addr], e.Hostname)
		}
		slices.SortFunc(addrs, netip.Addr.Compare)

		sb := strings.Builder{}
		for _, addr := range addrs {
			sb.WriteString(addr.String())
			for _, host := range hosts[addr] {
				sb.WriteString(fmt.Sprintf("\t%s", host))
			}
			if name, ok := networks.Name(addr); ok {
				sb.WriteString(fmt.Sprintf("\t# %s", name))
			}
			sb.WriteString("\n")
		}
		fmt.Fprint(cmd.OutOrStdout(), sb.String())
		return nil
	},
	GroupID: "local",
}

func init() {
	rootCmd.AddCommand(hostsCmd)
}
