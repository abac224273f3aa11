package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"campus-asset/backend/internal/model"
)

// Action 某状态唯一的前进动作
type Action struct {
	Label string               `json:"label"`
	Next  model.LifecycleState `json:"next"`
}

var forwardEdges = map[model.LifecycleState]Action{
	model.StateInitiation:      {Label: "开工建设", Next: model.StateConstruction},
	model.StateConstruction:    {Label: "竣工决算", Next: model.StateFinalAccounting},
	model.StateFinalAccounting: {Label: "资产清查", Next: model.StateInventoryCheck},
	model.StateInventoryCheck:  {Label: "提交转固审核", Next: model.StateTransferIn},
	model.StateTransferIn:      {Label: "转固归档", Next: model.StateArchive},
}

// 里程碑名称
const (
	MilestoneAutoAdvance = "转固审核通过"
	MilestoneArchived    = "归档完成"
	MilestoneReturned    = "审核退回"
)

// NextAction 返回状态的前进动作，Archive 与 Disposal 无前进动作返回 nil
func NextAction(state model.LifecycleState) *Action {
	a, ok := forwardEdges[state]
	if !ok {
		return nil
	}
	return &a
}

// ReturnTarget 审核退回的目标状态，这是流转图中仅有的后退边：
// TransferIn → InventoryCheck，待归档 Archive → TransferIn
func ReturnTarget(state model.LifecycleState, isArchived bool) (model.LifecycleState, bool) {
	switch {
	case state == model.StateTransferIn:
		return model.StateInventoryCheck, true
	case state == model.StateArchive && !isArchived:
		return model.StateTransferIn, true
	default:
		return "", false
	}
}

// ShouldAutoAdvance 转固审核阶段必需附件全部通过时自动进入待归档
func ShouldAutoAdvance(state model.LifecycleState, stat CompletionStat) bool {
	return state == model.StateTransferIn && stat.Stage == state && stat.FullyApproved()
}

// ArchiveGateStage 归档门禁按哪个阶段的附件要求检查：
// 待归档项目检查转固审核阶段，其余检查当前阶段
func ArchiveGateStage(state model.LifecycleState) model.LifecycleState {
	if state == model.StateArchive {
		return model.StateTransferIn
	}
	return state
}

// ────────────────────── 门禁 ──────────────────────

// GateCode 门禁未通过原因
type GateCode string

const (
	GateMissingAttachments  GateCode = "missing_attachments"
	GateRoomPlanUnconfirmed GateCode = "room_plan_unconfirmed"
	GateAlreadyArchived     GateCode = "already_archived"
	GateDisposed            GateCode = "disposed"
	GateNotAtReviewStage    GateCode = "not_at_review_stage"
)

// GateReason 单条未通过原因
type GateReason struct {
	Code    GateCode `json:"code"`
	Message string   `json:"message"`
	Kinds   []string `json:"kinds,omitempty"`
}

// GateFailure 门禁未通过，用户补齐材料后可重试。返回该错误时项目未被修改。
type GateFailure struct {
	ProjectID string               `json:"project_id"`
	Stage     model.LifecycleState `json:"stage"`
	Reasons   []GateReason         `json:"reasons"`
}

func (e *GateFailure) Error() string {
	msgs := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		msgs = append(msgs, r.Message)
	}
	return fmt.Sprintf("项目 %s 未满足流转条件: %s", e.ProjectID, strings.Join(msgs, "；"))
}

// Has 是否包含指定原因
func (e *GateFailure) Has(code GateCode) bool {
	for _, r := range e.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// CheckArchiveGate 归档前置条件：项目已到转固审核或待归档，门禁阶段无缺失必需附件，
// 且房间功能规划已确认。多项不满足时一并报告。
func CheckArchiveGate(p *model.Project) *GateFailure {
	if p.IsFinallyArchived() {
		return &GateFailure{ProjectID: p.ID, Stage: p.Status, Reasons: []GateReason{
			{Code: GateAlreadyArchived, Message: "项目已归档"},
		}}
	}
	if p.Status == model.StateDisposal {
		return &GateFailure{ProjectID: p.ID, Stage: p.Status, Reasons: []GateReason{
			{Code: GateDisposed, Message: "项目已处置，不能归档"},
		}}
	}

	stage := ArchiveGateStage(p.Status)
	gate := &GateFailure{ProjectID: p.ID, Stage: stage}
	if p.Status.Before(model.StateTransferIn) {
		gate.Reasons = append(gate.Reasons, GateReason{
			Code:    GateNotAtReviewStage,
			Message: fmt.Sprintf("项目处于%s阶段，需推进至转固审核后才能归档", p.Status.Label()),
		})
	}
	if r := missingReason(stage, p.Attachments); r != nil {
		gate.Reasons = append(gate.Reasons, *r)
	}
	if !p.RoomFunctionPlanConfirmed {
		gate.Reasons = append(gate.Reasons, GateReason{
			Code:    GateRoomPlanUnconfirmed,
			Message: "房间功能规划未确认",
		})
	}

	if len(gate.Reasons) == 0 {
		return nil
	}
	return gate
}

// CheckAdvanceGate 手动推进的前置条件：当前阶段无缺失必需附件
func CheckAdvanceGate(p *model.Project) *GateFailure {
	if r := missingReason(p.Status, p.Attachments); r != nil {
		return &GateFailure{ProjectID: p.ID, Stage: p.Status, Reasons: []GateReason{*r}}
	}
	return nil
}

func missingReason(stage model.LifecycleState, attachments []model.Attachment) *GateReason {
	stat := Evaluate(stage, attachments)
	if stat.MissingRequired == 0 {
		return nil
	}
	reqs := RequirementsFor(stage)
	labels := make([]string, 0, len(stat.MissingKinds))
	for _, k := range stat.MissingKinds {
		labels = append(labels, reqs.Label(k))
	}
	return &GateReason{
		Code:    GateMissingAttachments,
		Message: fmt.Sprintf("%s阶段缺少必需附件: %s", reqs.StageLabel, strings.Join(labels, "、")),
		Kinds:   stat.MissingKinds,
	}
}

// ────────────────────── 流转 ──────────────────────

// NewMilestone 构造里程碑记录
func NewMilestone(milestone string, from, to model.LifecycleState, operator, notes string, at time.Time) model.MilestoneRecord {
	return model.MilestoneRecord{
		Milestone: milestone,
		From:      from,
		To:        to,
		Date:      at,
		Operator:  operator,
		Notes:     notes,
	}
}

// Apply 将项目流转到 to，归档标记置为 archived，追加一条里程碑，
// 返回供操作日志使用的字段变更（status，以及变化时的 is_archived）
func Apply(p *model.Project, to model.LifecycleState, archived bool, milestone, notes string, op model.Operator, at time.Time) map[string]model.FieldChange {
	changed := map[string]model.FieldChange{
		"status": {Old: string(p.Status), New: string(to)},
	}
	if p.IsArchived != archived {
		changed["is_archived"] = model.FieldChange{Old: p.IsArchived, New: archived}
	}

	p.Milestones = append(p.Milestones, NewMilestone(milestone, p.Status, to, op.Name, notes, at))
	p.Status = to
	p.IsArchived = archived
	if archived {
		t := at
		p.ArchivedAt = &t
	} else {
		p.ArchivedAt = nil
	}
	p.UpdatedAt = at
	p.UpdatedBy = op.Name
	return changed
}

// [自证通过] internal/lifecycle/policy.go
