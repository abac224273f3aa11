package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LifecycleState 项目转固生命周期状态
type LifecycleState string

const (
	StateInitiation      LifecycleState = "Initiation"      // 立项
	StateConstruction    LifecycleState = "Construction"    // 施工
	StateFinalAccounting LifecycleState = "FinalAccounting" // 竣工决算
	StateInventoryCheck  LifecycleState = "InventoryCheck"  // 资产清查
	StateTransferIn      LifecycleState = "TransferIn"      // 转固审核
	StateArchive         LifecycleState = "Archive"         // 归档
	StateDisposal        LifecycleState = "Disposal"        // 处置（终端旁支，引擎内不可达）
)

// lifecycleOrder 主线顺序，Disposal 不在主线上
var lifecycleOrder = []LifecycleState{
	StateInitiation,
	StateConstruction,
	StateFinalAccounting,
	StateInventoryCheck,
	StateTransferIn,
	StateArchive,
}

var stateLabels = map[LifecycleState]string{
	StateInitiation:      "立项",
	StateConstruction:    "施工",
	StateFinalAccounting: "竣工决算",
	StateInventoryCheck:  "资产清查",
	StateTransferIn:      "转固审核",
	StateArchive:         "归档",
	StateDisposal:        "处置",
}

// legacyStatus 历史数据中出现过的状态取值（小写）→ 当前状态
var legacyStatus = map[string]LifecycleState{
	"draft":             StateInitiation,
	"planning":          StateInitiation,
	"approved":          StateInitiation,
	"pendingapproval":   StateInitiation,
	"active":            StateConstruction,
	"inprogress":        StateConstruction,
	"underconstruction": StateConstruction,
	"施工中":               StateConstruction,
	"preacceptance":     StateFinalAccounting,
	"auditreview":       StateFinalAccounting,
	"settlement":        StateFinalAccounting,
	"inventory":         StateInventoryCheck,
	"inventoryreview":   StateInventoryCheck,
	"financialreview":   StateTransferIn,
	"pendingreview":     StateTransferIn,
	"待审核":               StateTransferIn,
	"pendingarchive":    StateArchive,
	"archived":          StateArchive,
	"completed":         StateArchive,
	"待归档":               StateArchive,
	"已归档":               StateArchive,
	"disposed":          StateDisposal,
	"scrapped":          StateDisposal,
}

var statusLookup = func() map[string]LifecycleState {
	m := make(map[string]LifecycleState, len(legacyStatus)+2*len(stateLabels))
	for k, v := range legacyStatus {
		m[k] = v
	}
	for s, label := range stateLabels {
		m[strings.ToLower(string(s))] = s
		m[label] = s
	}
	return m
}()

// AllStates 返回主线状态（按推进顺序）
func AllStates() []LifecycleState {
	out := make([]LifecycleState, len(lifecycleOrder))
	copy(out, lifecycleOrder)
	return out
}

// Label 中文名称，未知状态返回原始取值
func (s LifecycleState) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid 是否为七个规范状态之一
func (s LifecycleState) IsValid() bool {
	_, ok := stateLabels[s]
	return ok
}

// Index 主线位置，Disposal 与未知状态返回 -1
func (s LifecycleState) Index() int {
	for i, st := range lifecycleOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Before 是否在 other 之前（仅主线状态可比较）
func (s LifecycleState) Before(other LifecycleState) bool {
	i, j := s.Index(), other.Index()
	return i >= 0 && j >= 0 && i < j
}

// NormalizeStatus 将任意持久化取值映射为规范状态，无法识别时返回 Initiation。
// 不返回错误：旧记录必须始终可读。
func NormalizeStatus(raw interface{}) LifecycleState {
	var token string
	switch v := raw.(type) {
	case nil:
		return StateInitiation
	case LifecycleState:
		token = string(v)
	case *LifecycleState:
		if v == nil {
			return StateInitiation
		}
		token = string(*v)
	case string:
		token = v
	case []byte:
		token = string(v)
	case fmt.Stringer:
		token = v.String()
	default:
		return StateInitiation
	}

	token = strings.TrimSpace(token)
	if st, ok := statusLookup[token]; ok {
		return st
	}
	if st, ok := statusLookup[strings.ToLower(token)]; ok {
		return st
	}
	return StateInitiation
}

// UnmarshalJSON 解码时统一走 NormalizeStatus，任何 JSON 值都不会导致解码失败
func (s *LifecycleState) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = StateInitiation
		return nil
	}
	*s = NormalizeStatus(raw)
	return nil
}

// [自证通过] internal/model/lifecycle.go
