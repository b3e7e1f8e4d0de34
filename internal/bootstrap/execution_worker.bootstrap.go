package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meridianhq/execore/internal/codec"
	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/constant"
	"github.com/meridianhq/execore/internal/infrastructure"
	"github.com/meridianhq/execore/internal/model"
	"github.com/meridianhq/execore/internal/repository"
	"github.com/meridianhq/execore/internal/service/execution"
	"github.com/meridianhq/execore/internal/util"
)

// StartExecutionWorker runs the event-processing side: replay the
// journal to warm the engine, then consume the inbound subject.
func StartExecutionWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executionDB, err := infrastructure.NewPostgresConnection(ctx, constant.ExecutionDatabaseName, config.Env.Database[constant.ExecutionDatabaseName])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, executionDB, config.Env.Database[constant.ExecutionDatabaseName].PingInterval)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	redisClient, err := infrastructure.NewRedisClient(ctx, "cache", config.Env.Redis["cache"])
	util.ContinueOrFatal(err)

	omsType, err := parseOMSType(config.Env.Engine.OMSType)
	util.ContinueOrFatal(err)

	registry, err := buildInstrumentRegistry(config.Env.Instruments)
	util.ContinueOrFatal(err)
	logrus.Info(fmt.Sprintf("instrument catalog loaded: %d instruments", registry.Len()))

	journalRepo := repository.NewEventJournalRepository(executionDB)
	orderRecordRepo := repository.NewOrderRecordRepository(executionDB)
	snapshotRepo := repository.NewPositionSnapshotRepository(redisClient, config.Env.Engine.SnapshotTTL)

	eventCodec := codec.New()
	executionService := execution.NewExecutionService(
		omsType, model.NewRealClock(), js, eventCodec,
		journalRepo, orderRecordRepo, snapshotRepo,
	)

	// warm-up replay stays off the wire; only live events are announced
	replayService := execution.NewReplayService(journalRepo, eventCodec, config.Env.Engine.ReplayBatchSize)
	summary, err := executionService.WarmUp(ctx, replayService)
	util.ContinueOrFatal(err)
	logrus.WithFields(logrus.Fields{
		"read":    summary.Read,
		"applied": summary.Applied,
		"failed":  summary.Failed,
		"last_id": summary.LastID,
	}).Info("journal replay completed")

	err = executionService.JetstreamEventSubscribe(ctx)
	util.ContinueOrFatal(err)

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", infrastructure.MetricsHandler())
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpPort := fmt.Sprintf(":%s", config.Env.Port["execution_worker_http"])
	httpServer := infrastructure.NewHTTPServerWithConfig(infrastructure.HTTPServerConfig{
		Addr:            httpPort,
		ShutdownTimeout: config.Env.GracefulShutdownTimeout,
	}, httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on %s", httpPort))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"execution database": func(ctx context.Context) error {
			cancel()
			return executionDB.Close()
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Close()
		},
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
