package repository

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/meridianhq/execore/internal/constant"
	"github.com/meridianhq/execore/internal/model"
)

// PositionSnapshotRepository keeps the latest snapshot per position in
// redis so downstream consumers can read exposure without touching the
// engine. A set of open position ids rides alongside the snapshots.
type PositionSnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPositionSnapshotRepository(client *redis.Client, ttl time.Duration) *PositionSnapshotRepository {
	return &PositionSnapshotRepository{client: client, ttl: ttl}
}

func snapshotKey(positionID model.PositionID) string {
	return constant.PositionSnapshotKeyPrefix + string(positionID)
}

// Upsert stores the snapshot and maintains the open-position set.
func (r *PositionSnapshotRepository) Upsert(ctx context.Context, snapshot model.PositionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, snapshotKey(snapshot.PositionID), payload, r.ttl)
	if snapshot.IsOpen {
		pipe.SAdd(ctx, constant.OpenPositionSetKey, string(snapshot.PositionID))
	} else {
		pipe.SRem(ctx, constant.OpenPositionSetKey, string(snapshot.PositionID))
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Get loads the latest snapshot for the position. The second return is
// false when no snapshot is cached.
func (r *PositionSnapshotRepository) Get(ctx context.Context, positionID model.PositionID) (model.PositionSnapshot, bool, error) {
	raw, err := r.client.Get(ctx, snapshotKey(positionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return model.PositionSnapshot{}, false, nil
		}
		return model.PositionSnapshot{}, false, err
	}

	var snapshot model.PositionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return model.PositionSnapshot{}, false, err
	}

	return snapshot, true, nil
}

// OpenPositionIDs returns the ids of every cached open position.
func (r *PositionSnapshotRepository) OpenPositionIDs(ctx context.Context) ([]model.PositionID, error) {
	members, err := r.client.SMembers(ctx, constant.OpenPositionSetKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]model.PositionID, 0, len(members))
	for _, member := range members {
		ids = append(ids, model.PositionID(member))
	}

	return ids, nil
}
