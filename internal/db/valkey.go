package db

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/campusmind/campusmind/internal/config"
)

// NewValkeyClient creates and pings a Valkey client used for shared presence
// state. Only called when cache.enabled is set.
func NewValkeyClient(cfg *config.Config) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Cache.Address},
		Password:    cfg.Cache.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	return client, nil
}
