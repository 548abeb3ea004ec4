// Package cmd contains ndpid's command line interface implementation
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/els0r/telemetry/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ndpid/ndpid-go/cmd/ndpid/config"
	"github.com/ndpid/ndpid-go/pkg/dpi"
	"github.com/ndpid/ndpid-go/pkg/pcapsrc"
	"github.com/ndpid/ndpid-go/pkg/statusapi"
	"github.com/ndpid/ndpid-go/pkg/worker"
)

const shutdownGracePeriod = 30 * time.Second

// Execute runs the ndpid root command.
func Execute() error {
	rootCmd, err := newRootCmd(run)
	if err != nil {
		return err
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newTopCmd())

	return rootCmd.Execute()
}

// runFunc is the type of the function that is called when the root command
// is executed. Defined as a type mainly for testing purposes.
type runFunc func(ctx context.Context, cfg *config.Config) error

const (
	flagInterface       = "interface"
	flagOffline         = "offline"
	flagPromisc         = "promisc"
	flagThreads         = "threads"
	flagCollectorSocket = "collector_socket"
	flagAPIAddr         = "api_addr"
	flagLogStderr       = "log_stderr"

	loggingKey     = "logging"
	flagLogLevel   = loggingKey + ".level"
	flagLogEncoding = loggingKey + ".encoding"
	flagLogDest    = loggingKey + ".destination"

	flagConfigFile = "config"
)

func newRootCmd(run runFunc) (*cobra.Command, error) {
	cfg := config.New()

	rootCmd := &cobra.Command{
		Use:   "ndpid",
		Short: "ndpid captures traffic, classifies flows via DPI and emits JSON events",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfg); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return initLogging(cfg)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	if err := registerFlags(rootCmd, cfg); err != nil {
		return nil, fmt.Errorf("failed to register flags: %w", err)
	}

	return rootCmd, nil
}

func registerFlags(cmd *cobra.Command, cfg *config.Config) error {
	pflags := cmd.PersistentFlags()

	pflags.StringP(flagConfigFile, "", "", "path to configuration file")

	pflags.StringVarP(&cfg.Interface, flagInterface, "i", "", "interface to capture from, or a pcap file with --offline")
	pflags.BoolVar(&cfg.Offline, flagOffline, false, "treat --interface as a pcap file to replay instead of a live interface")
	pflags.BoolVar(&cfg.Promisc, flagPromisc, false, "enable promiscuous mode for live captures")
	pflags.IntVarP(&cfg.Threads, flagThreads, "n", cfg.Threads, "number of capture worker threads")
	pflags.StringVarP(&cfg.CollectorSocket, flagCollectorSocket, "c", cfg.CollectorSocket, "path to the collector's AF_UNIX socket")
	pflags.StringVar(&cfg.APIAddr, flagAPIAddr, "", "optional address to bind the status/metrics HTTP API on")
	pflags.BoolVarP(&cfg.Logging.Stderr, flagLogStderr, "l", false, "additionally log to stderr")

	pflags.String(flagLogLevel, cfg.Logging.Level, "log level for logger")
	pflags.String(flagLogEncoding, cfg.Logging.Encoding, "message encoding format for logger")
	pflags.String(flagLogDest, "", "logging destination file path (empty for stdout)")

	return viper.BindPFlags(pflags)
}

// initConfig reads in config file and ENV variables if set, then
// unmarshals the merged flag/file/env view onto cfg via viper.
func initConfig(cfg *config.Config) error {
	path := viper.GetString(flagConfigFile)
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "__"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	return nil
}

func initLogging(cfg *config.Config) error {
	level := logging.LevelFromString(cfg.Logging.Level)
	encoding := logging.Encoding(cfg.Logging.Encoding)

	var opts []logging.Option
	if cfg.Logging.Destination != "" {
		opts = append(opts, logging.WithFileOutput(cfg.Logging.Destination))
	}
	if cfg.Logging.Stderr {
		opts = append(opts, logging.WithFileOutput(os.Stderr.Name()))
	}

	return logging.Init(level, encoding, opts...)
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.FromContext(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Each worker opens its own handle on the same interface/file, exactly
	// as nDPId's reader threads each call pcap_open independently: every
	// worker callback sees the full traffic and keeps only the packets
	// pkg/shard.ThreadIndex assigns to it.
	detector := dpi.NewHeuristicDetector()

	workflows := make([]*worker.Workflow, cfg.Threads)
	for i := range workflows {
		var source *pcapsrc.Source
		var err error
		if cfg.Offline {
			source, err = pcapsrc.OpenOffline(cfg.Interface)
		} else {
			source, err = pcapsrc.OpenLive(cfg.Interface, cfg.Promisc)
		}
		if err != nil {
			return fmt.Errorf("failed to open capture source on %q for worker %d: %w", cfg.Interface, i, err)
		}
		workflows[i] = worker.New(i, cfg.Threads, source, detector, cfg.CollectorSocket)
	}

	var wg sync.WaitGroup
	for _, w := range workflows {
		wg.Add(1)
		go func(w *worker.Workflow) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	var apiServer *statusapi.Server
	if cfg.APIAddr != "" {
		apiServer = statusapi.New(cfg.APIAddr, func() []worker.Stats {
			stats := make([]worker.Stats, len(workflows))
			for i, w := range workflows {
				stats[i] = w.Stats()
			}
			return stats
		}, false)

		go func() {
			logger.With("addr", cfg.APIAddr).Info("starting status API server")
			if err := apiServer.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.With("error", err).Fatal("status API server failed")
			}
		}()
	}

	logger.Info("started ndpid")

	wg.Wait()

	stop()
	logger.Info("all capture workers stopped, shutting down")

	var total worker.Stats
	for _, w := range workflows {
		st := w.Stats()
		logger.With("thread_id", st.ThreadID, "packets_captured", st.PacketsCaptured, "packets_processed", st.PacketsProcessed,
			"total_l4_data_len", st.TotalL4DataLen, "detected_flow_protocols", st.DetectedFlowProtocols).Info("worker stats")
		total.PacketsCaptured += st.PacketsCaptured
		total.PacketsProcessed += st.PacketsProcessed
		total.TotalL4DataLen += st.TotalL4DataLen
		total.DetectedFlowProtocols += st.DetectedFlowProtocols
	}
	logger.With("packets_captured", total.PacketsCaptured, "packets_processed", total.PacketsProcessed,
		"total_l4_data_len", total.TotalL4DataLen, "detected_flow_protocols", total.DetectedFlowProtocols).Info("aggregate stats")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shut down of status API server: %w", err)
		}
	}

	return nil
}
