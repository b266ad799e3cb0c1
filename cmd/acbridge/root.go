package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeclimate/acbridge/hub"
	"github.com/edgeclimate/acbridge/transport"
)

var (
	cfgFile string

	// Global flags
	host      string
	port      int
	unitID    uint8
	timeout   time.Duration
	outputFmt string
	verbose   bool
	noColor   bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "acbridge",
	Short: "Poll and control an AC unit over Modbus TCP",
	Long: `acbridge bridges an air-conditioning unit speaking Modbus TCP to
higher-level automation: it polls a fixed register set into a cache with
availability tracking, and exposes ad-hoc read/write/scan diagnostics.

Examples:
  # Run the polling daemon against a device profile
  acbridge run --profile ac.yaml

  # Read the power register
  acbridge read -a 1033 -H 192.168.1.100

  # Write mode 2 (heat) with readback verification
  acbridge write -a 1041 -V 2 -H 192.168.1.100

  # Scan registers 1000-1099
  acbridge scan -a 1000 -e 1099 -H 192.168.1.100

  # Watch the polled cache
  acbridge watch -i 10s -H 192.168.1.100`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.acbridge.yaml)")

	// Connection flags
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "localhost", "Device host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 502, "Device port")
	rootCmd.PersistentFlags().Uint8VarP(&unitID, "unit", "u", 1, "Modbus unit ID (1-247)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "Operation timeout")

	// Output flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("unit", rootCmd.PersistentFlags().Lookup("unit"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".acbridge")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ACBRIDGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// buildHub creates a hub from the global connection flags.
func buildHub() (*hub.Hub, error) {
	return hub.New(viper.GetString("host"),
		hub.WithPort(viper.GetInt("port")),
		hub.WithUnitID(uint8(viper.GetUint("unit"))),
		hub.WithTimeout(viper.GetDuration("timeout")),
		hub.WithTransportFactory(transport.Factory()),
		hub.WithLogger(logger),
	)
}

func getAddress() string {
	return fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
}
