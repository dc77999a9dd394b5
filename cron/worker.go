package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"servifix/config"
	"servifix/services/quote"
)

const TypeQuoteExpire = "quote:expire"

// InitQuoteSweeper runs the background expiry sweep: a periodic asynq task
// that marks overdue pending quotes expired. Read-time sweeps still run,
// so a stalled worker only widens the staleness window.
func InitQuoteSweeper(quoteSvc quote.QuoteService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeQuoteExpire, handleQuoteExpire(quoteSvc))

	go monitorRedisConnection(redisOpts)

	go func() {
		zap.L().Info("starting quote sweep worker")
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if err := srv.Run(mux); err != nil {
				zap.L().Error("quote sweep worker failed to start",
					zap.Int("attempt", attempt), zap.Error(err))
				if attempt == maxAttempts {
					zap.L().Fatal("quote sweep worker gave up")
				}
				time.Sleep(time.Duration(attempt*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runScheduler(redisOpts)
}

// runScheduler enqueues the sweep task on a fixed interval.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	intervalSec := config.AppConfig.QuoteSweepIntervalSec
	if intervalSec <= 0 {
		intervalSec = 60
	}

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})
	spec := fmt.Sprintf("@every %ds", intervalSec)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeQuoteExpire, nil)); err != nil {
		zap.L().Error("quote sweep schedule registration failed", zap.Error(err))
		return
	}
	if err := scheduler.Run(); err != nil {
		zap.L().Error("quote sweep scheduler stopped", zap.Error(err))
	}
}

func handleQuoteExpire(quoteSvc quote.QuoteService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		swept, err := quoteSvc.ExpireSweep()
		if err != nil {
			zap.L().Error("quote sweep failed", zap.Error(err))
			return err
		}
		if swept > 0 {
			zap.L().Info("quote sweep finished", zap.Int64("expired", swept))
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to surface queue
// backend failures at runtime.
func monitorRedisConnection(opts asynq.RedisClientOpt) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx := context.Background()
	for {
		if err := client.Ping(ctx).Err(); err != nil {
			zap.L().Warn("queue redis connection lost", zap.Error(err))
		}
		time.Sleep(10 * time.Second)
	}
}
