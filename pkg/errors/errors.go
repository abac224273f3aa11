package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 由键值存储的 CompareAndSet 在版本号不一致时返回，仅用于发现丢失更新，不做合并
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// IsOptimisticLock 判断是否为乐观锁冲突
func IsOptimisticLock(err error) bool {
	return errors.Is(err, ErrOptimisticLock)
}
