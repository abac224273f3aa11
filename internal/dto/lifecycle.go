package dto

import (
	"io"

	"github.com/shopspring/decimal"

	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/model"
)

// ── 状态流转 ──

// TransitionRequest 推进/归档请求
type TransitionRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=500"`
}

// RejectRequest 审核退回请求
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=2,max=500"`
}

// NextActionResponse 当前可执行的前进动作与门禁情况
type NextActionResponse struct {
	ProjectID     string                 `json:"project_id"`
	Status        model.LifecycleState   `json:"status"`
	DisplayStatus string                 `json:"display_status"`
	Action        *lifecycle.Action      `json:"action"`
	CanAdvance    bool                   `json:"can_advance"`
	AdvanceGate   *lifecycle.GateFailure `json:"advance_gate,omitempty"`
	CanArchive    bool                   `json:"can_archive"`
	ArchiveGate   *lifecycle.GateFailure `json:"archive_gate,omitempty"`
	CanReject     bool                   `json:"can_reject"`
	Completion    CompletionResponse     `json:"completion"`
}

// ── 附件 ──

// UploadAttachmentRequest 附件上传表单字段
type UploadAttachmentRequest struct {
	Kind           string `form:"kind"             binding:"required,max=50"`
	Stage          string `form:"stage"            binding:"omitempty,max=50"`
	UploadedByDept string `form:"uploaded_by_dept" binding:"omitempty,max=100"`
}

// UploadFile 上传文件内容
type UploadFile struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// ReviewAttachmentRequest 附件审核请求
type ReviewAttachmentRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

// ReviewAttachmentResponse 审核结果，AutoAdvanced 表示本次审核触发了自动推进
type ReviewAttachmentResponse struct {
	Attachment    model.Attachment     `json:"attachment"`
	Completion    CompletionResponse   `json:"completion"`
	AutoAdvanced  bool                 `json:"auto_advanced"`
	Status        model.LifecycleState `json:"status"`
	DisplayStatus string               `json:"display_status"`
}

// AttachmentFile 附件下载内容，调用方负责关闭 Reader
type AttachmentFile struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.ReadCloser
}

// ── 房间功能规划 ──

// RoomPlanEntryRequest 单条房间功能规划
type RoomPlanEntryRequest struct {
	ID           string          `json:"id"            binding:"omitempty,max=64"`
	BuildingName string          `json:"building_name" binding:"required,max=100"`
	RoomNo       string          `json:"room_no"       binding:"required,max=32"`
	Area         decimal.Decimal `json:"area"`
	MainCategory string          `json:"main_category" binding:"required,max=50"`
	SubCategory  string          `json:"sub_category"  binding:"omitempty,max=50"`
	Remark       *string         `json:"remark"        binding:"omitempty,max=200"`
}

// ReplaceRoomPlanRequest 整体替换房间功能规划
type ReplaceRoomPlanRequest struct {
	Entries []RoomPlanEntryRequest `json:"entries" binding:"dive"`
}

// [自证通过] internal/dto/lifecycle.go
