package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meridianhq/execore/internal/codec"
	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/constant"
	"github.com/meridianhq/execore/internal/engine"
	httpHandler "github.com/meridianhq/execore/internal/handler/execution/http"
	wsHandler "github.com/meridianhq/execore/internal/handler/execution/ws"
	"github.com/meridianhq/execore/internal/infrastructure"
	"github.com/meridianhq/execore/internal/model"
	"github.com/meridianhq/execore/internal/repository"
	"github.com/meridianhq/execore/internal/service/execution"
	"github.com/meridianhq/execore/internal/util"
)

// StartExecutionGateway runs the read side: a query engine rebuilt
// from the journal, the HTTP query API, and the websocket position
// stream. The gateway never publishes; its engine replays history and
// then follows the live subjects.
func StartExecutionGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executionDB, err := infrastructure.NewPostgresConnection(ctx, constant.ExecutionDatabaseName, config.Env.Database[constant.ExecutionDatabaseName])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, executionDB, config.Env.Database[constant.ExecutionDatabaseName].PingInterval)

	nc, _, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	omsType, err := parseOMSType(config.Env.Engine.OMSType)
	util.ContinueOrFatal(err)

	journalRepo := repository.NewEventJournalRepository(executionDB)
	eventCodec := codec.New()

	queryEngine := engine.New(omsType, model.NewRealClock(), uuid.New, execution.NopPublisher{})
	replayService := execution.NewReplayService(journalRepo, eventCodec, config.Env.Engine.ReplayBatchSize)
	summary, err := replayService.Replay(ctx, queryEngine)
	util.ContinueOrFatal(err)
	logrus.WithFields(logrus.Fields{
		"read":    summary.Read,
		"applied": summary.Applied,
		"failed":  summary.Failed,
		"last_id": summary.LastID,
	}).Info("journal replay completed")

	// follow the live feed so queries do not freeze at replay time.
	// events that were both journaled and redelivered across the gap
	// are rejected by the aggregates, which is the correct outcome.
	_, err = nc.Subscribe(constant.ExecutionSubjectEvents, func(msg *nats.Msg) {
		event, err := eventCodec.Decode(msg.Data)
		if err != nil {
			logrus.Errorf("undecodable event on live feed: %v", err)
			return
		}
		if err := queryEngine.Process(ctx, event); err != nil {
			logrus.Debugf("live feed event not applied: %v", err)
		}
	})
	util.ContinueOrFatal(err)

	hub := wsHandler.NewPositionStreamHub()
	go func() {
		if err := hub.Run(ctx, nc); err != nil {
			logrus.Error(err)
		}
	}()

	executionHTTPHandler := httpHandler.NewExecutionHTTPHandler(queryEngine)
	httpMux := http.NewServeMux()
	executionHTTPHandler.Register(httpMux)
	httpMux.Handle("/execution/v1/stream/positions", hub)
	httpMux.Handle("/metrics", infrastructure.MetricsHandler())

	httpPort := fmt.Sprintf(":%s", config.Env.Port["execution_gateway_http"])
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
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
