package cmd

import (
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/mountainsensing/msfetch/core"
	"github.com/mountainsensing/msfetch/protocol"
	"github.com/mountainsensing/msfetch/state"
	"github.com/spf13/cobra"
)

var getSampleCmd = nodeCommand("get-sample", "Get a sample from nodes and print it",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		id, _ := cmd.Flags().GetUint32("sample")
		return &core.GetSample{Transport: rt.Transport, ID: id}, nil
	})

var delSampleCmd = nodeCommand("del-sample", "Delete a sample from nodes",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		id, _ := cmd.Flags().GetUint32("sample")
		return &core.DeleteSample{Transport: rt.Transport, ID: id}, nil
	})

var grabSampleCmd = nodeCommand("grab-sample", "Move samples off nodes into the sample queue",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		flags := cmd.Flags()
		id, _ := flags.GetUint32("sample")
		all, _ := flags.GetBool("all")
		dir, _ := flags.GetString("dir")
		dbPath, _ := flags.GetString("sqlite")
		if !flags.Changed("dir") && rt.Config.SampleDir != "" {
			dir = rt.Config.SampleDir
		}

		var sinks []core.SampleSink
		if dir != "" {
			sink, err := core.NewDirSink(dir)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		}
		if dbPath != "" {
			sink, err := core.NewSQLiteSink(dbPath)
			if err != nil {
				return nil, err
			}
			rt.Defer(sink)
			sinks = append(sinks, sink)
		}
		if len(sinks) == 0 {
			return nil, fmt.Errorf("nowhere to save samples, give --dir or --sqlite")
		}
		return &core.GrabSample{Transport: rt.Transport, ID: id, All: all, Sinks: sinks}, nil
	})

var decodeSampleCmd = &cobra.Command{
	Use:     "decode-sample [file]",
	Short:   "Decode a sample read from a file or stdin",
	Args:    cobra.MaximumNArgs(1),
	GroupID: "local",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := localLogger()
		if err != nil {
			return err
		}
		defer closer.Close()

		d := core.NewSampleDecoder(log)
		flags := cmd.Flags()
		if dir, _ := flags.GetString("dir"); dir != "" {
			nodeID, _ := flags.GetString("node-id")
			node, err := decodedNode(nodeID)
			if err != nil {
				return err
			}
			sink, err := core.NewDirSink(dir)
			if err != nil {
				return err
			}
			d.Handle = func(m *protocol.Message) error {
				location, err := sink.Save(node, m)
				if err != nil {
					return err
				}
				log.Info("saved sample", "id", m.Uint32(protocol.SampleID), "to", location)
				return nil
			}
		}
		return decodeInput(cmd, args, d)
	},
}

// decodedNode is the address samples decoded from a serial dump are queued
// under, so the forwarder can tell them apart from fetched ones.
func decodedNode(nodeID string) (state.NodeAddress, error) {
	addr, err := netip.ParseAddr("dead:beef::" + nodeID)
	if err != nil {
		return state.NodeAddress{}, fmt.Errorf("invalid node id %q", nodeID)
	}
	return state.NewNodeAddress(addr, ""), nil
}

func decodeInput(cmd *cobra.Command, args []string, d *core.Decoder) error {
	serial, _ := cmd.Flags().GetBool("serial")
	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	n, err := d.Decode(in, serial)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no %s found in input", d.Schema.Name())
	}
	d.Log.Debug("decoded records", "count", n)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{getSampleCmd, delSampleCmd, grabSampleCmd} {
		c.Flags().Uint32P("sample", "s", core.LatestSample, "sample id, the latest sample if 0")
	}
	grabSampleCmd.Flags().BoolP("all", "a", false, "keep grabbing until the node has no samples left")
	grabSampleCmd.Flags().StringP("dir", "d", state.DefaultSampleDir, "directory samples are queued in, empty to disable")
	grabSampleCmd.Flags().String("sqlite", "", "also store samples in this SQLite database")
	grabSampleCmd.MarkFlagsMutuallyExclusive("sample", "all")

	decodeSampleCmd.Flags().BoolP("serial", "s", false, "input is a serial console dump")
	decodeSampleCmd.Flags().StringP("dir", "d", "", "queue decoded samples in this directory")
	decodeSampleCmd.Flags().String("node-id", "0", "node id decoded samples are queued under")

	rootCmd.AddCommand(getSampleCmd, delSampleCmd, grabSampleCmd, decodeSampleCmd)
}
