package secretmanager

import (
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

// ProvideVault builds a vault client from VAULT_ADDR, VAULT_TOKEN and the
// other standard VAULT_* variables. Config loading reads contract secrets
// (database password, JWT secret, flagsmith and minio keys) through it.
func ProvideVault() (*vault.Client, error) {
	client, err := vault.New(
		vault.WithEnvironment(),
		vault.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}

	zap.L().Info("[Vault] client configured", zap.String("addr", os.Getenv("VAULT_ADDR")))
	return client, nil
}
