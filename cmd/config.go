package cmd

import (
	"github.com/mountainsensing/msfetch/core"
	"github.com/mountainsensing/msfetch/protocol"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var getConfigCmd = nodeCommand("get-config", "Get the config of nodes and print it",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		return &core.GetConfig{Transport: rt.Transport}, nil
	})

var forceConfigCmd = nodeCommand("force-config", "Overwrite the config of nodes, using defaults for settings not given",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		settings, err := configSettings(cmd.Flags())
		if err != nil {
			return nil, err
		}
		return &core.ForceConfig{Transport: rt.Transport, Settings: settings}, nil
	})

var editConfigCmd = nodeCommand("edit-config", "Change the given settings in the config of nodes",
	func(cmd *cobra.Command, rt *core.Runtime) (core.NodeAction, error) {
		settings, err := configSettings(cmd.Flags())
		if err != nil {
			return nil, err
		}
		return &core.EditConfig{Transport: rt.Transport, Settings: settings}, nil
	})

var decodeConfigCmd = &cobra.Command{
	Use:     "decode-config [file]",
	Short:   "Decode a config read from a file or stdin",
	Args:    cobra.MaximumNArgs(1),
	GroupID: "local",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := localLogger()
		if err != nil {
			return err
		}
		defer closer.Close()
		return decodeInput(cmd, args, core.NewConfigDecoder(log))
	},
}

// configSettings collects the settings flags that were given.
func configSettings(flags *pflag.FlagSet) (core.ConfigSettings, error) {
	var s core.ConfigSettings
	boolFlag := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return &v
	}
	s.HasADC1 = boolFlag("adc1")
	s.HasADC2 = boolFlag("adc2")
	s.HasRain = boolFlag("rain")

	if flags.Changed("interval") {
		v, _ := flags.GetUint32("interval")
		s.Interval = &v
	}
	for name, dst := range map[string]**uint32{"avr": &s.AvrID, "power": &s.PowerID} {
		if !flags.Changed(name) {
			continue
		}
		raw, _ := flags.GetString(name)
		v, err := protocol.ParseHex(raw)
		if err != nil {
			return s, err
		}
		*dst = &v
	}
	if flags.Changed("routing-mode") {
		raw, _ := flags.GetString("routing-mode")
		mode, err := protocol.ParseRoutingMode(raw)
		if err != nil {
			return s, err
		}
		s.RoutingMode = &mode
	}
	return s, nil
}

func init() {
	for _, c := range []*cobra.Command{forceConfigCmd, editConfigCmd} {
		flags := c.Flags()
		flags.Bool("adc1", false, "ADC1 is connected")
		flags.Bool("adc2", false, "ADC2 is connected")
		flags.Bool("rain", false, "a rain gauge is connected")
		flags.Uint32P("interval", "i", core.DefaultInterval, "sampling interval in seconds")
		flags.String("avr", "", "hex id of the AVR board, 0 for none")
		flags.String("power", "", "hex id of the power board, 0 for none")
		flags.String("routing-mode", protocol.RoutingMesh.String(), "MESH or LEAF")
	}
	decodeConfigCmd.Flags().BoolP("serial", "s", false, "input is a serial console dump")

	rootCmd.AddCommand(getConfigCmd, forceConfigCmd, editConfigCmd, decodeConfigCmd)
}
