package bootstrap

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meridianhq/execore/internal/codec"
	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/constant"
	"github.com/meridianhq/execore/internal/engine"
	"github.com/meridianhq/execore/internal/infrastructure"
	"github.com/meridianhq/execore/internal/model"
	"github.com/meridianhq/execore/internal/repository"
	"github.com/meridianhq/execore/internal/service/execution"
	"github.com/meridianhq/execore/internal/util"
)

// StartReplay rebuilds engine state from the journal and reports what
// it found. A journal that replays with failures has diverged from the
// state the worker committed, and the counts point at where.
func StartReplay(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executionDB, err := infrastructure.NewPostgresConnection(ctx, constant.ExecutionDatabaseName, config.Env.Database[constant.ExecutionDatabaseName])
	util.ContinueOrFatal(err)
	defer func() { _ = executionDB.Close() }()

	omsType, err := parseOMSType(config.Env.Engine.OMSType)
	util.ContinueOrFatal(err)

	journalRepo := repository.NewEventJournalRepository(executionDB)
	eventCodec := codec.New()

	total, err := journalRepo.Count(ctx)
	util.ContinueOrFatal(err)

	target := engine.New(omsType, model.NewRealClock(), uuid.New, execution.NopPublisher{})
	replayService := execution.NewReplayService(journalRepo, eventCodec, config.Env.Engine.ReplayBatchSize)
	summary, err := replayService.Replay(ctx, target)
	util.ContinueOrFatal(err)

	logger := logrus.WithFields(logrus.Fields{
		"journaled":      total,
		"read":           summary.Read,
		"applied":        summary.Applied,
		"failed":         summary.Failed,
		"last_id":        summary.LastID,
		"orders":         len(target.Orders()),
		"open_positions": len(target.OpenPositions()),
	})

	if summary.Failed > 0 || summary.Read != total {
		logger.Warn("journal replay diverged")
		return
	}

	logger.Info("journal replay clean")
}
