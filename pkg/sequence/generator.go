package sequence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contract-lifecycle/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContractTable is the table holding issued contract numbers.
const ContractTable = "contracts"

var Module = fx.Module("sequence",
	fx.Provide(New),
)

// Generator proposes the next contract number for a tenant. The caller must
// insert the number inside tx and retry on a unique violation; proposals are
// not reservations.
type Generator interface {
	NextContractNumber(ctx context.Context, tx *gorm.DB, tenantID string, at time.Time) (string, error)
}

// Invalidator is implemented by generators that cache counters outside the
// database and need to drop them after a collision.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string, at time.Time) error
}

type Params struct {
	fx.In

	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

// New selects the generator backend from configuration.
func New(p Params) Generator {
	format := Format{Prefix: p.Config.Contract.NumberPrefix}
	store := NewStoreGenerator(format)

	if strings.EqualFold(p.Config.Contract.SequenceBackend, "redis") {
		if p.Redis == nil {
			zap.L().Warn("redis sequence backend requested without a redis client, using store backend")
			return store
		}
		return NewRedisGenerator(p.Redis, store)
	}
	return store
}

// StoreGenerator reads the highest issued number inside the creating
// transaction.
type StoreGenerator struct {
	format Format
	table  string
}

func NewStoreGenerator(format Format) *StoreGenerator {
	return &StoreGenerator{format: format, table: ContractTable}
}

func (g *StoreGenerator) NextContractNumber(ctx context.Context, tx *gorm.DB, tenantID string, at time.Time) (string, error) {
	prefix := g.format.PrefixFor(tenantID)
	yy := Year(at)

	latest, err := g.latestSequence(ctx, tx, tenantID, Base(prefix, yy))
	if err != nil {
		return "", err
	}
	return FormatNumber(prefix, yy, latest+1), nil
}

// latestSequence returns the highest sequence issued under base, 0 when none.
func (g *StoreGenerator) latestSequence(ctx context.Context, tx *gorm.DB, tenantID, base string) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidDB
	}

	query := func() *gorm.DB {
		return tx.WithContext(ctx).
			Table(g.table).
			Where("tenant_id = ? AND contract_number LIKE ?", tenantID, base+"%")
	}

	var top []string
	err := query().
		Order("LENGTH(contract_number) DESC, contract_number DESC").
		Limit(1).
		Pluck("contract_number", &top).Error
	if err != nil {
		return 0, fmt.Errorf("read latest contract number: %w", err)
	}
	if len(top) == 0 {
		return 0, nil
	}
	if seq, ok := ParseSequence(top[0], base); ok {
		return seq, nil
	}

	// A malformed number sorted first; fall back to scanning the year.
	var all []string
	if err := query().Pluck("contract_number", &all).Error; err != nil {
		return 0, fmt.Errorf("scan contract numbers: %w", err)
	}
	var max int64
	for _, n := range all {
		if seq, ok := ParseSequence(n, base); ok && seq > max {
			max = seq
		}
	}
	return max, nil
}
