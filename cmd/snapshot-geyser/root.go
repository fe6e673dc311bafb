package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plerkle-io/snapshot-geyser/config"
	"github.com/plerkle-io/snapshot-geyser/constants"
	"github.com/plerkle-io/snapshot-geyser/error_types"
	"github.com/plerkle-io/snapshot-geyser/logging"
	"github.com/plerkle-io/snapshot-geyser/replay"
)

var exitCode int

// Build the cobra command that handles our command line tool.
func rootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           constants.AppName + " [flags]",
		Short:         "Replay the accounts of a validator snapshot into a geyser plugin",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			var progress io.Writer
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				progress = cmd.ErrOrStderr()
			}
			if err := run(cmd.Context(), configPath, v, progress); err != nil {
				return err
			}
			fmt.Println("Done!")
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.String("config", "", "Path of an HCL configuration file")
	flags.Bool("quiet", false, "Do not print progress")
	flags.String(config.FlagName(config.KeySnapshotURL), "", "Snapshot archive URL (http, https, s3, gs, file or a local path)")
	flags.String(config.FlagName(config.KeyPluginConfig), "", "Path of the geyser plugin configuration file")
	flags.String(config.FlagName(config.KeyLogLevel), "", "Log level: debug, info, warn, error or off")
	flags.Uint64(config.FlagName(config.KeyProgressInterval), constants.DefaultProgressInterval, "Number of accounts between progress reports")
	flags.Int64(config.FlagName(config.KeyMaxBytesPerSecond), 0, "Throttle the snapshot download to this many bytes per second")
	flags.Int64(config.FlagName(config.KeyBurstBytes), 0, "Largest burst of the throttled download, in bytes")
	for _, key := range config.OverridableKeys {
		if err := v.BindPFlag(key, flags.Lookup(config.FlagName(key))); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(scaffoldCmd())
	return rootCmd
}

// run performs one pass. Progress is printed to progress unless it is nil
func run(ctx context.Context, configPath string, v *viper.Viper, progress io.Writer) error {
	cfg, err := config.Load(configPath, v)
	if err != nil {
		return err
	}
	if err := logging.Initialize(constants.AppName, cfg.LogLevel); err != nil {
		return error_types.NewConfigurationError("invalid log level", err)
	}

	replayConfig, err := cfg.ReplayConfig()
	if err != nil {
		return err
	}
	r, err := replay.NewReplayer(replayConfig)
	if err != nil {
		return err
	}
	if progress != nil {
		if err := r.AddObserver(newProgressPrinter(progress)); err != nil {
			return err
		}
	}
	return r.Run(ctx)
}

func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := rootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(errorLine(err))
		exitCode = 1
	}
	return exitCode
}

// errorLine formats err as the single line reported to the operator
func errorLine(err error) string {
	var e *error_types.Error
	if errors.As(err, &e) {
		return fmt.Sprintf("Error: %s: %s", e.Kind, e.Error())
	}
	return fmt.Sprintf("Error: %s", err.Error())
}
