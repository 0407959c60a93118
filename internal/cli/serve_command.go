package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/repodigest/repodigest/internal/config"
	"github.com/repodigest/repodigest/internal/services/store"
	"github.com/repodigest/repodigest/internal/services/web"
	"github.com/repodigest/repodigest/internal/utils"
)

const (
	serveUse              = "serve"
	serveShortDescription = "run the HTTP ingestion service"
	serveLongDescription  = `Expose the ingestion engine over HTTP.
POST /api/ingest produces a digest, GET /api/digest/{id} downloads a stored
digest until its retention period lapses, and GET / reports liveness.`
	// serveUsageExample demonstrates serve command usage.
	serveUsageExample = `  # Serve on the configured address
  repodigest serve

  # Serve on a specific port with two-hour digest retention
  repodigest serve --address 127.0.0.1:9000 --digest-ttl 2h`

	addressFlagName          = "address"
	addressFlagDescription   = "listen address for the HTTP service"
	digestTTLFlagName        = "digest-ttl"
	digestTTLFlagDescription = "retention period for downloadable digests"

	serverLoggerErrorFormat      = "unable to initialize server logger: %w"
	serverListeningMessageFormat = "repodigest service listening on %s\n"
)

// createServeCommand returns the serve subcommand. configPath points at the
// root command's --config binding.
func createServeCommand(configPath *string) *cobra.Command {
	var listenAddress string
	var digestTTL time.Duration

	serveCommand := &cobra.Command{
		Use:     serveUse,
		Short:   serveShortDescription,
		Long:    serveLongDescription,
		Example: serveUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runServeCommand(command, *configPath, listenAddress, digestTTL)
		},
	}
	serveCommand.Flags().StringVar(&listenAddress, addressFlagName, "", addressFlagDescription)
	serveCommand.Flags().DurationVar(&digestTTL, digestTTLFlagName, 0, digestTTLFlagDescription)
	return serveCommand
}

// runServeCommand starts the web service and the store sweeper and blocks
// until an interrupt or termination signal arrives.
func runServeCommand(command *cobra.Command, configPath, listenAddress string, digestTTL time.Duration) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: configPath,
	})
	if configurationError != nil {
		return fmt.Errorf(configurationLoadErrorFormat, configurationError)
	}
	if !command.Flags().Changed(addressFlagName) && configuration.Server.Address != "" {
		listenAddress = configuration.Server.Address
	}
	if !command.Flags().Changed(digestTTLFlagName) && configuration.Server.DigestTTL > 0 {
		digestTTL = configuration.Server.DigestTTL
	}

	serverLogger, loggerError := utils.NewServerLogger()
	if loggerError != nil {
		return fmt.Errorf(serverLoggerErrorFormat, loggerError)
	}
	defer serverLogger.Sync()

	engine, engineError := buildEngine(serverLogger, ingestOptions{
		maxFileSize:   configuration.Ingest.MaxFileSize,
		maxFiles:      configuration.Ingest.MaxFiles,
		maxTotalBytes: configuration.Ingest.MaxTotalBytes,
		maxDepth:      configuration.Ingest.MaxDepth,
		cloneTimeout:  configuration.Ingest.CloneTimeout,
		tokenModel:    configuration.Ingest.TokenModel,
	})
	if engineError != nil {
		return engineError
	}

	digestStore := store.New(store.Config{TTL: digestTTL, Logger: serverLogger})
	server := web.NewServer(web.Config{
		Address: listenAddress,
		Engine:  engine,
		Store:   digestStore,
		Logger:  serverLogger,
	})

	ctx, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return digestStore.Run(groupCtx)
	})
	group.Go(func() error {
		return server.Run(groupCtx, func(boundAddress string) {
			fmt.Fprintf(command.OutOrStdout(), serverListeningMessageFormat, boundAddress)
		})
	})
	return group.Wait()
}
