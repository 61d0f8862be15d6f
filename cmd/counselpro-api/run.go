package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	apiserver "github.com/unique-Sachin/CounselPro-AI/internal/api_server"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	"github.com/unique-Sachin/CounselPro-AI/internal/media"
	"github.com/unique-Sachin/CounselPro-AI/internal/notify"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/queue"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/transcription"
	"github.com/unique-Sachin/CounselPro-AI/internal/verification"
	"github.com/unique-Sachin/CounselPro-AI/internal/visual"
	"go.uber.org/zap"
)

// reaperGrace is added to the job budget before a record left active is considered orphaned.
const reaperGrace = 5 * time.Minute

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the counselpro api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, done, err := setup()
		if err != nil {
			return err
		}
		defer done()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if cfg.Database.Type != "pgsql" {
			if err := s.InitialMigration(context.Background()); err != nil {
				zap.S().Fatalw("running initial migration", "error", err)
			}
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		dispatcher := newDispatcher(cfg)
		defer func() {
			if err := dispatcher.Close(); err != nil {
				zap.S().Warnw("failed to close notification dispatcher", "error", err)
			}
		}()

		orchestrator, err := newOrchestrator(cfg, s, dispatcher)
		if err != nil {
			zap.S().Fatalw("initializing pipeline", "error", err)
		}

		q := queue.NewQueue(s, orchestrator, cfg.Service.Pipeline.QueueCapacity, cfg.Service.Pipeline.Workers)
		if err := q.Start(ctx); err != nil {
			zap.S().Fatalw("starting job queue", "error", err)
		}
		defer q.Shutdown(cfg.Service.Pipeline.ShutdownTimeout)

		staleAfter := cfg.Service.Pipeline.JobTimeout + reaperGrace
		queue.NewReaper(s, q, cfg.Service.Pipeline.ReaperInterval, staleAfter).Start(ctx)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, s, q, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener, s)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("failed to run metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}

func newDispatcher(cfg *config.Config) *notify.Dispatcher {
	if url := cfg.Service.Notification.WebhookURL; url != "" {
		zap.S().Infow("analysis notifications are posted to a webhook", "url", url)
		return notify.NewDispatcher(notify.NewWebhookWriter(url, cfg.Service.Notification.Timeout))
	}
	return notify.NewDispatcher(&notify.LogWriter{})
}

func newOrchestrator(cfg *config.Config, s store.Store, notifier pipeline.Notifier) (*pipeline.Orchestrator, error) {
	pcfg := cfg.Service.Pipeline

	extractor := media.NewExtractor(
		newResolver(cfg),
		media.WithFfmpegPath(pcfg.FfmpegPath),
		media.WithWorkDir(pcfg.WorkDir),
		media.WithFrameInterval(pcfg.FrameInterval),
	)

	tcfg := cfg.Service.Transcription
	deepgram := transcription.NewDeepgramClient(
		tcfg.APIKey,
		transcription.WithURL(tcfg.URL),
		transcription.WithModel(tcfg.Model),
		transcription.WithHTTPClient(&http.Client{Timeout: tcfg.Timeout}),
	)
	if tcfg.APIKey == "" {
		zap.S().Warn("no transcription api key configured, transcriptions will fail")
	}

	var classifier visual.FrameClassifier
	if cfg.Service.Vision.URL != "" {
		classifier = visual.NewHttpClassifier(cfg.Service.Vision.URL, cfg.Service.Vision.Timeout)
	} else {
		zap.S().Warn("no vision endpoint configured, visual assessment is skipped")
	}

	catalog := verification.NewCatalog()
	if cfg.Service.Catalog.File != "" {
		c, err := verification.LoadCatalog(cfg.Service.Catalog.File, cfg.Service.Catalog.Sheet)
		if err != nil {
			return nil, err
		}
		catalog = c
	}
	zap.S().Infow("course catalog loaded", "courses", catalog.Len())

	return pipeline.NewOrchestrator(
		s,
		extractor,
		transcription.NewStage(deepgram),
		visual.NewStage(classifier),
		verification.NewVerifier(catalog),
		notifier,
		pipeline.WithTimeouts(pipeline.TimeoutsFromConfig(pcfg)),
		pipeline.WithPersistenceAttempts(pcfg.PersistenceMaxAttempts),
	), nil
}

// newResolver registers object storage first when configured, then http and local files.
func newResolver(cfg *config.Config) *media.Manager {
	rm := media.NewResolverManager()

	s3 := cfg.Service.S3
	if s3.Endpoint != "" && s3.Bucket != "" {
		minio, err := media.NewMinioResolver(
			media.WithEndpoint(s3.Endpoint),
			media.WithBucket(s3.Bucket),
			media.WithAccessKey(s3.AccessKey),
			media.WithSecretKey(s3.SecretKey),
			media.WithSSL(s3.UseSSL),
		)
		if err == nil {
			rm.Register(minio)
		} else {
			zap.S().Errorw("failed to create minio resolver", "error", err)
		}
	}

	rm.Register(media.NewHttpResolver(&http.Client{}))
	rm.Register(media.NewFileResolver())

	return rm
}
