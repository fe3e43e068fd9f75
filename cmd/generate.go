package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/passrate-feed/internal/clock/system"
	"github.com/JakeFAU/passrate-feed/internal/config"
	collyfetcher "github.com/JakeFAU/passrate-feed/internal/fetcher/colly"
	"github.com/JakeFAU/passrate-feed/internal/hash/sha256"
	"github.com/JakeFAU/passrate-feed/internal/id/uuid"
	"github.com/JakeFAU/passrate-feed/internal/logging"
	"github.com/JakeFAU/passrate-feed/internal/metrics"
	"github.com/JakeFAU/passrate-feed/internal/pipeline"
	"github.com/JakeFAU/passrate-feed/internal/report"
	"github.com/JakeFAU/passrate-feed/internal/storage/gcs"
	"github.com/JakeFAU/passrate-feed/internal/storage/local"
	"github.com/JakeFAU/passrate-feed/internal/tracker"
	"github.com/JakeFAU/passrate-feed/internal/writer"
)

// newGenerateCmd creates the 'generate' subcommand, an explicit spelling of
// the root command's default action.
func newGenerateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Fetch the tracker page and write the feed and snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}
}

func runGenerate(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	stores := make([]tracker.BlobStore, 0, 2)
	localStore, err := local.New(local.Config{BaseDir: cfg.Output.Dir})
	if err != nil {
		return &tracker.IOError{Path: cfg.Output.Dir, Err: err}
	}
	stores = append(stores, localStore)

	if cfg.Output.GCSBucket != "" {
		gcsStore, client, dialErr := gcs.Dial(ctx, gcs.Config{
			Bucket:       cfg.Output.GCSBucket,
			Prefix:       cfg.Output.GCSPrefix,
			CacheControl: cfg.Output.CacheControl,
		})
		if dialErr != nil {
			return dialErr
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("failed to close GCS client", zap.Error(closeErr))
			}
		}()
		stores = append(stores, gcsStore)
	}

	artifactWriter, err := writer.New(writer.Names{
		Feed: cfg.Output.FeedFile,
		Data: cfg.Output.DataFile,
	}, sha256.New(), logger, stores...)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	if cfg.Metrics.Textfile != "" {
		defer func() {
			if writeErr := recorder.WriteTextfile(cfg.Metrics.Textfile); writeErr != nil {
				logger.Warn("metrics textfile not written", zap.Error(writeErr))
			}
		}()
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Source.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
		MaxRedirects:  cfg.HTTP.MaxRedirects,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	}, logger)

	runner, err := pipeline.New(pipeline.Deps{
		Fetcher: fetcher,
		Writer:  artifactWriter,
		Clock:   system.New(),
		IDs:     uuid.New(),
		Metrics: recorder,
		Logger:  logger,
	}, cfg.FeedOptions())
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx, cfg.Source.URL)
	if err != nil {
		return err
	}
	report.Render(cmd.OutOrStdout(), summary)
	return nil
}
