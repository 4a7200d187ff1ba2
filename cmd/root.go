package cmd

import (
	"os"

	"github.com/mountainsensing/msfetch/state"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugAddr  string
	// flagConfig receives the persistent flags, config holds the settings in
	// effect once the config file and flags are merged.
	flagConfig = state.DefaultConfig()
	config     state.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "msfetch",
	Short: "Mountain Sensing node fetcher",
	Long: `msfetch talks to Mountain Sensing sensor nodes over CoAP.
It fetches and clears samples, reads and writes node configs, checks clocks and routes, and decodes payloads captured from a node's serial console.`,
	Version:           state.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg := state.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = state.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = flagConfig.Timeout
	}
	if flags.Changed("retries") {
		cfg.Retries = flagConfig.Retries
	}
	if flags.Changed("port") {
		cfg.Port = flagConfig.Port
	}
	if flags.Changed("hosts") {
		cfg.Hosts = append(cfg.Hosts, flagConfig.Hosts...)
	}
	if flags.Changed("resolvers") {
		cfg.Resolvers = flagConfig.Resolvers
	}
	if flags.Changed("log-file") {
		cfg.LogFile = flagConfig.LogFile
	}
	if flags.Changed("console-level") {
		cfg.ConsoleLevel = flagConfig.ConsoleLevel
	}
	if flags.Changed("file-level") {
		cfg.FileLevel = flagConfig.FileLevel
	}
	if flags.Changed("lock") {
		cfg.LockPath = flagConfig.LockPath
	}

	if err := state.ConfigValidator(&cfg); err != nil {
		return err
	}
	config = cfg
	return nil
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "node",
		Title: "Node Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "local",
		Title: "Local Commands",
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file, flags take precedence over it")
	flags.DurationVarP(&flagConfig.Timeout, "timeout", "t", flagConfig.Timeout, "timeout of a single request")
	flags.IntVarP(&flagConfig.Retries, "retries", "r", flagConfig.Retries, "attempts per node before giving up on it")
	flags.IntVar(&flagConfig.Port, "port", flagConfig.Port, "CoAP port of the nodes")
	flags.StringArrayVar(&flagConfig.Hosts, "hosts", nil, "hosts file with name overrides, may be repeated")
	flags.StringSliceVar(&flagConfig.Resolvers, "resolvers", nil, "DNS servers to use instead of the system ones")
	flags.StringVar(&flagConfig.LogFile, "log-file", "", "also append logs to this file")
	flags.StringVar(&flagConfig.ConsoleLevel, "console-level", flagConfig.ConsoleLevel, "minimum level of console logs")
	flags.StringVar(&flagConfig.FileLevel, "file-level", flagConfig.FileLevel, "minimum level of file logs")
	flags.StringVar(&flagConfig.LockPath, "lock", flagConfig.LockPath, "lock file preventing concurrent runs, empty to disable")
	flags.StringVar(&debugAddr, "debug-addr", "", "serve metrics on this address while running")
}
