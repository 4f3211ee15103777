// devicectl drives the shadow, jobs and identity services of one device
// over MQTT.
//
// Every command loads the device configuration, connects to the broker
// and runs one request/response operation or streams events until
// interrupted. The journal and InfluxDB sinks record each operation when
// they are enabled in the configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/device.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A .env file is optional; variables already set win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Default().Warn("reading .env failed", "error", err)
	}

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	thingName  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "devicectl",
		Short: "Device shadow, jobs and provisioning client",
		Long: `devicectl talks to the device services over MQTT.

Service commands:
  devicectl shadow get|update|delete|watch
  devicectl jobs pending|describe|start-next|update|watch
  devicectl provision create-keys|create-from-csr|register

Local commands:
  devicectl journal list      Show recorded operations
  devicectl serve             Stream shadow deltas and job notifications`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", getConfigPath(), "path to the device configuration file")
	root.PersistentFlags().StringVarP(&flags.thingName, "thing", "t", "", "thing name (overrides thing.name)")

	root.AddCommand(newShadowCmd(flags))
	root.AddCommand(newJobsCmd(flags))
	root.AddCommand(newProvisionCmd(flags))
	root.AddCommand(newJournalCmd(flags))
	root.AddCommand(newServeCmd(flags))

	return root
}

// getConfigPath returns the configuration file path.
// Uses IOTDEVICE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IOTDEVICE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
