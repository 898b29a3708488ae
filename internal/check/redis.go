package check

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CheckRedis probes a Redis server with PING. Parameters:
//
//	addr     (string, default "localhost:6379")
//	password (string, optional)
//	db       (int, default 0)
func CheckRedis(ctx context.Context, params Params) (Report, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     params.StringOr("addr", "localhost:6379"),
		Password: params.String("password"),
		DB:       params.Int("db", 0),
	})
	defer client.Close()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		return Report{}, fmt.Errorf("redis ping: %w", err)
	}
	elapsed := time.Since(start)

	return Report{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("pong in %s", elapsed.Round(time.Millisecond)),
		Meta:    map[string]string{"latency": elapsed.Round(time.Millisecond).String()},
	}, nil
}
