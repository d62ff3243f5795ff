package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	snapshotv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/snapshot/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/redis"
)

// Store keeps one order cache snapshot per symbol in Redis.
type Store struct {
	prefix      string
	logger      logger.Interface
	redisclient redis.Client
}

var _ snapshotv1.Store = (*Store)(nil)

// NewSnapshotStore creates a store whose keys are prefix + "snapshot:{SYMBOL}".
func NewSnapshotStore(redisclient redis.Client, prefix string, log logger.Interface) *Store {
	return &Store{
		prefix:      prefix,
		redisclient: redisclient,
		logger:      log,
	}
}

func (s *Store) key(symbol string) string {
	return fmt.Sprintf("%ssnapshot:{%s}", s.prefix, symbol)
}

// Store saves the snapshot, replacing the previous one for its symbol.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	symbolField := logger.NewField("symbol", snapshot.Symbol)

	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, symbolField, logger.NewField("action", "marshal snapshot"))
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key(snapshot.Symbol), buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, symbolField, logger.NewField("action", "store snapshot"))
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.InfoContext(ctx, "Snapshot stored",
		symbolField,
		logger.NewField("orders", len(snapshot.Orders)),
		logger.NewField("seq", snapshot.Seq),
	)
	return nil
}

// LoadStore returns the latest snapshot of symbol, or nil when there is none.
func (s *Store) LoadStore(ctx context.Context, symbol string) (*snapshotv1.Snapshot, error) {
	symbolField := logger.NewField("symbol", symbol)

	data, err := s.redisclient.Get(ctx, s.key(symbol))
	if err != nil {
		s.logger.ErrorContext(ctx, err, symbolField, logger.NewField("action", "load snapshot"))
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, "No snapshot found", symbolField)
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, symbolField, logger.NewField("action", "unmarshal snapshot"))
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	return &snapshot, nil
}
