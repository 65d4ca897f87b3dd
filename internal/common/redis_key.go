package common

import (
	"fmt"
	"strings"
)

func RedisKeyTrackedTransaction(chain, txID string) string {
	return fmt.Sprintf("trackedtx:%s:%s", chain, txID)
}

func RedisPatternTrackedTransaction(chain string) string {
	return fmt.Sprintf("trackedtx:%s:*", chain)
}

func FromRedisKeyTrackedTransaction(key string) string {
	parts := strings.Split(key, ":")
	return parts[len(parts)-1]
}
