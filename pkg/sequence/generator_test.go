package sequence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"contract-lifecycle/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type contractRow struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string
	ContractNumber string
}

func (contractRow) TableName() string { return ContractTable }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&contractRow{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func seedNumbers(t *testing.T, db *gorm.DB, tenantID string, numbers ...string) {
	t.Helper()
	for i, n := range numbers {
		require.NoError(t, db.Create(&contractRow{ID: fmt.Sprintf("%s-%d", tenantID, i), TenantID: tenantID, ContractNumber: n}).Error)
	}
}

var at = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func TestPrefixFor(t *testing.T) {
	require.Equal(t, "ACM", Format{}.PrefixFor("acme-corp"))
	require.Equal(t, "A1B", Format{}.PrefixFor("a-1_b2"))
	require.Equal(t, DefaultPrefix, Format{}.PrefixFor("x-"))
	require.Equal(t, DefaultPrefix, Format{}.PrefixFor(""))
	require.Equal(t, "HQ", Format{Prefix: "hq"}.PrefixFor("acme"))
}

func TestParseSequence(t *testing.T) {
	seq, ok := ParseSequence("ACM-25-0042", "ACM-25-")
	require.True(t, ok)
	require.Equal(t, int64(42), seq)

	_, ok = ParseSequence("ACM-24-0042", "ACM-25-")
	require.False(t, ok)
	_, ok = ParseSequence("ACM-25-00X2", "ACM-25-")
	require.False(t, ok)
}

func TestStoreGenerator(t *testing.T) {
	db := newTestDB(t)
	gen := NewStoreGenerator(Format{})
	ctx := context.Background()

	number, err := gen.NextContractNumber(ctx, db, "acme", at)
	require.NoError(t, err)
	require.Equal(t, "ACM-25-0001", number)

	seedNumbers(t, db, "acme", "ACM-25-0009", "ACM-25-0010", "ACM-24-0099")
	seedNumbers(t, db, "acmf", "ACM-25-0500")

	number, err = gen.NextContractNumber(ctx, db, "acme", at)
	require.NoError(t, err)
	require.Equal(t, "ACM-25-0011", number)
}

func TestStoreGeneratorBeyondFourDigits(t *testing.T) {
	db := newTestDB(t)
	seedNumbers(t, db, "acme", "ACM-25-9999", "ACM-25-10000")

	number, err := NewStoreGenerator(Format{}).NextContractNumber(context.Background(), db, "acme", at)
	require.NoError(t, err)
	require.Equal(t, "ACM-25-10001", number)
}

func TestStoreGeneratorSkipsMalformed(t *testing.T) {
	db := newTestDB(t)
	seedNumbers(t, db, "acme", "ACM-25-0003", "ACM-25-LEGACY1")

	number, err := NewStoreGenerator(Format{}).NextContractNumber(context.Background(), db, "acme", at)
	require.NoError(t, err)
	require.Equal(t, "ACM-25-0004", number)
}

func TestStoreGeneratorNilTx(t *testing.T) {
	_, err := NewStoreGenerator(Format{}).NextContractNumber(context.Background(), nil, "acme", at)
	require.ErrorIs(t, err, gorm.ErrInvalidDB)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisGeneratorSeedsFromStore(t *testing.T) {
	db := newTestDB(t)
	seedNumbers(t, db, "acme", "ACM-25-0007")
	gen := NewRedisGenerator(newRedis(t), NewStoreGenerator(Format{}))
	ctx := context.Background()

	number, err := gen.NextContractNumber(ctx, db, "acme", at)
	require.NoError(t, err)
	require.Equal(t, "ACM-25-0008", number)

	number, err = gen.NextContractNumber(ctx, db, "acme", at)
	require.NoError(t, err)
	require.Equal(t, "ACM-25-0009", number)

	number, err = gen.NextContractNumber(ctx, db, "acme", at.AddDate(1, 0, 0))
	require.NoError(t, err)
	require.Equal(t, "ACM-26-0001", number)
}

func TestRedisGeneratorInvalidate(t *testing.T) {
	db := newTestDB(t)
	gen := NewRedisGenerator(newRedis(t), NewStoreGenerator(Format{}))
	ctx := context.Background()

	_, err := gen.NextContractNumber(ctx, db, "acme", at)
	require.NoError(t, err)

	// Another writer issued numbers the counter never saw.
	seedNumbers(t, db, "acme", "ACM-25-0040")
	require.NoError(t, gen.Invalidate(ctx, "acme", at))

	number, err := gen.NextContractNumber(ctx, db, "acme", at)
	require.NoError(t, err)
	require.Equal(t, "ACM-25-0041", number)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := &config.Config{}
	require.IsType(t, &StoreGenerator{}, New(Params{Config: cfg}))

	cfg.Contract.SequenceBackend = "redis"
	require.IsType(t, &StoreGenerator{}, New(Params{Config: cfg}))
	require.IsType(t, &RedisGenerator{}, New(Params{Config: cfg, Redis: newRedis(t)}))
}
