// Package redisfactory provides ready-made genpool factory functions for
// Redis clients. Each pooled resource is one *redis.Client verified with
// a ping on create and closed on dispose.
package redisfactory

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/uryu/genpool"
)

// New returns the create and dispose functions for pooling clients built
// from opts. opts is cloned per connection by go-redis, so one options
// value can back many pooled clients.
func New(opts *redis.Options) (genpool.CreateFunc[*redis.Client], genpool.DisposeFunc[*redis.Client]) {
	create := func(ctx context.Context) (*redis.Client, error) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
		}
		return client, nil
	}
	dispose := func(ctx context.Context, client *redis.Client) error {
		return client.Close()
	}
	return create, dispose
}
