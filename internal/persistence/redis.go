package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/facility-ops/internal/config"
)

// Redis carries ticket events to out-of-process consumers over pub/sub.
type Redis struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedis builds the client. An unreachable server is logged and left to the readiness
// probe; events published meanwhile fail and are logged by the dispatcher's caller.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	timeout := cfg.Timeout()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   "facility-ops",
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	r := &Redis{Client: client, logger: logger.Named("redis")}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		r.logger.Warn("event fan-out target unreachable", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		r.logger.Info("event fan-out target connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return r
}

// Publish sends message on channel. It lets Redis serve as the ticket event publisher.
func (r *Redis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	if r == nil || r.Client == nil {
		cmd := redis.NewIntCmd(ctx)
		cmd.SetErr(errRedisNotConfigured)
		return cmd
	}
	return r.Client.Publish(ctx, channel, message)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errRedisNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}

var errRedisNotConfigured = errors.New("redis client not configured")
