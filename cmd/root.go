package cmd

import (
	"context"
	"fmt"

	"github.com/futurehomeno/cliffhanger/bootstrap"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/futurehomeno/edge-vwarmup/internal/climate"
	"github.com/futurehomeno/edge-vwarmup/internal/config"
	"github.com/futurehomeno/edge-vwarmup/internal/logging"
)

const defaultConfigPath = "config.json"

// options holds the command line settings overriding the configuration.
type options struct {
	configPath        string
	vehicleUsername   string
	vehiclePassword   string
	chargerUsername   string
	chargerPassword   string
	logLevel          string
	suppressTimerLogs bool
}

// Execute is an entry point to the application.
func Execute() {
	err := newRootCmd().Execute()

	closeServices()

	if err != nil {
		log.WithError(err).Fatal("vwarmup failed")
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "vwarmup",
		Short:        "Keeps Easee smart charging in sync with the climatisation of a Volkswagen vehicle",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "path to the JSON configuration file")
	flags.StringVar(&opts.vehicleUsername, "vw-username", "", "vehicle service username")
	flags.StringVar(&opts.vehiclePassword, "vw-password", "", "vehicle service password")
	flags.StringVar(&opts.chargerUsername, "easee-username", "", "charger service username")
	flags.StringVar(&opts.chargerPassword, "easee-password", "", "charger service password")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	flags.BoolVar(&opts.suppressTimerLogs, "suppress-timer-logs", false, "emit only warnings and errors from the vehicle polling")

	rootCmd.AddCommand(newReconcileCmd())

	return rootCmd
}

func newReconcileCmd() *cobra.Command {
	var mode string

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Runs a single reconciliation for the given climatisation mode and prints the decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, ok := climate.ParseMode(mode)
			if !ok {
				return errors.Errorf("invalid mode %q, expected running or idle", mode)
			}

			if err := getConfigService().Model().Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			decision, err := getReconciler().Reconcile(cmd.Context(), m)
			if err != nil {
				return errors.Wrapf(err, "reconciliation failed, decision was %s", decision)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), decision.String())

			return err
		},
	}

	reconcileCmd.Flags().StringVar(&mode, "mode", "", "climatisation mode: running or idle")
	_ = reconcileCmd.MarkFlagRequired("mode")

	return reconcileCmd
}

// setup loads the configuration, applies command line overrides and configures logging.
func setup(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	applyOverrides(cmd, opts, cfg)

	services.configService = config.NewService(cfg)
	services.logCloser = logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)

	return nil
}

func applyOverrides(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("vw-username") {
		cfg.Vehicle.Username = opts.vehicleUsername
	}

	if flags.Changed("vw-password") {
		cfg.Vehicle.Password = opts.vehiclePassword
	}

	if flags.Changed("easee-username") {
		cfg.Charger.Username = opts.chargerUsername
	}

	if flags.Changed("easee-password") {
		cfg.Charger.Password = opts.chargerPassword
	}

	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if flags.Changed("suppress-timer-logs") {
		cfg.SuppressTimerLogs = opts.suppressTimerLogs
	}
}

// run starts the application and blocks until a shutdown signal arrives or the application fails.
func run(ctx context.Context) error {
	application := getApplication()

	if err := application.Check(); err != nil {
		return err
	}

	if err := application.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize the application")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- application.Run(ctx)
	}()

	shutdown := make(chan struct{})

	go func() {
		bootstrap.WaitForShutdown()
		close(shutdown)
	}()

	select {
	case err := <-done:
		return err
	case <-shutdown:
		log.Info("shutting down")
		cancel()

		return <-done
	}
}
