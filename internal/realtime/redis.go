package realtime

import (
	"github.com/redis/go-redis/v9"
)

// NewRedis creates the Redis client shared by the location cache and hub.
func NewRedis(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}
