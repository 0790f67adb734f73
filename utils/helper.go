package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/faisalhakim47/jurukasa-ledger/config"
)

func NewTrue() *bool {
	b := true
	return &b
}

func DereferencePtr[T any](ptr *T, fallback T) T {
	if ptr == nil {
		return fallback
	}
	return *ptr
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// LedgerLock obtains a best-effort serialization lock for a logical unit of
// work (fiscal year closing, reversal, reconciliation completion). When the
// Redis lock client is not configured the caller proceeds without it; the
// database transaction plus in-transaction re-checks stay authoritative.
// The returned release func is always safe to defer.
func LedgerLock(ctx context.Context, lockType string, key string, moduleName string, functionName string) (func(), error) {
	release := func() {}
	locker := config.GetRedisLock()
	if locker == nil {
		return release, nil
	}
	logger := config.GetLogger()
	lockKey := fmt.Sprintf("%s:%s", lockType, key)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "could not obtain ledger lock", lockKey, err)
		return release, errors.New("could not obtain ledger lock: " + lockKey)
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "error obtaining ledger lock", lockKey, err)
		return release, err
	}
	release = func() {
		_ = lock.Release(ctx)
	}
	return release, nil
}
