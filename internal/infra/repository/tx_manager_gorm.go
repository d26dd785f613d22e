package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	repo "supplychain/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txReposGorm struct {
	orders       repo.OrderRepository
	inventory    repo.InventoryRepository
	events       repo.TrackingEventRepository
	products     repo.ProductRepository
	transporters repo.TransporterRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                  { return r.orders }
func (r *txReposGorm) Inventory() repo.InventoryRepository           { return r.inventory }
func (r *txReposGorm) TrackingEvents() repo.TrackingEventRepository { return r.events }
func (r *txReposGorm) Products() repo.ProductRepository              { return r.products }
func (r *txReposGorm) Transporters() repo.TransporterRepository      { return r.transporters }

const defaultTxMaxRetries = 3

type TxManagerGorm struct {
	db         *gorm.DB
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewTxManagerGorm(db *gorm.DB, maxRetries int, logger *zap.Logger) *TxManagerGorm {
	if maxRetries < 0 {
		maxRetries = defaultTxMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxManagerGorm{db: db, maxRetries: maxRetries, backoff: 50 * time.Millisecond, logger: logger}
}

// READ COMMITTED + 行ロック。
// 直列化失敗(40001)とデッドロック(40P01)だけ指数バックオフで再試行する。
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	backoff := tm.backoff

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			//repoはtxを持ったDBで作り直す
			r := &txReposGorm{
				orders:       NewOrderGormRepository(tx),
				inventory:    NewInventoryGormRepository(tx),
				events:       NewTrackingEventGormRepository(tx),
				products:     NewProductGormRepository(tx),
				transporters: NewTransporterGormRepository(tx),
			}
			return fn(r)
		}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})

		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= tm.maxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", tm.maxRetries, err)
		}

		tm.logger.Warn("retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		jitter := time.Duration(rand.Int63n(int64(backoff/4) + 1))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

// 40001 serialization_failure / 40P01 deadlock_detected
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
