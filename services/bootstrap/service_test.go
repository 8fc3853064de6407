package bootstrap

import (
	"context"
	"testing"

	"contract-lifecycle/pkg/config"
	"contract-lifecycle/pkg/sequence"
	"contract-lifecycle/services/contract"
	"contract-lifecycle/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	db := testutil.NewTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	contracts := contract.NewService(contract.ServiceParams{
		DB:      db,
		Config:  cfg,
		Numbers: sequence.NewStoreGenerator(sequence.Format{}),
		Node:    node,
	})
	return NewService(ServiceParams{DB: db, Config: cfg, Contracts: contracts})
}

func TestMigrateSeedsPlatformTenant(t *testing.T) {
	cfg := &config.Config{}
	cfg.Platform.ID = "platform"
	cfg.Platform.Name = "Platform"
	s := newService(t, cfg)

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))

	var count int64
	require.NoError(t, s.db.Model(&contract.ContractType{}).Where("tenant_id = ?", "platform").Count(&count).Error)
	require.EqualValues(t, len(contract.DefaultTypes()), count)
}

func TestMigrateWithoutPlatform(t *testing.T) {
	s := newService(t, &config.Config{})
	require.NoError(t, s.Migrate(context.Background()))
	require.True(t, s.db.Migrator().HasTable(&contract.Contract{}))
}
