package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomType 房间粗分类，分配页面按此过滤可分配房间
type RoomType string

const (
	RoomTypeTeacherApartment RoomType = "teacher_apartment"
	RoomTypeStudentDorm      RoomType = "student_dorm"
	RoomTypeTeaching         RoomType = "teaching"
	RoomTypeResearch         RoomType = "research"
	RoomTypeOffice           RoomType = "office"
	RoomTypeLiving           RoomType = "living"
	RoomTypeOther            RoomType = "other"
)

// IsAssignable 仅教师公寓可分配给教师
func (t RoomType) IsAssignable() bool {
	return t == RoomTypeTeacherApartment
}

// BuildingAsset 楼宇资产，由项目归档投影生成
type BuildingAsset struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	SourceProjectID string           `json:"source_project_id"`
	Name            string           `json:"name"`
	Location        *string          `json:"location,omitempty"`
	Campus          *string          `json:"campus,omitempty"`
	TotalArea       decimal.Decimal  `json:"total_area"`
	RoomCount       int              `json:"room_count"`
	Floors          *int             `json:"floors,omitempty"`
	ManagementDept  *string          `json:"management_dept,omitempty"`
	CompletionYear  *int             `json:"completion_year,omitempty"`
	AssetValue      *decimal.Decimal `json:"asset_value,omitempty"`
	Remark          *string          `json:"remark,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// RoomAsset 房间资产，键为 (SourceProjectID, RoomNo)
type RoomAsset struct {
	ID              string          `json:"id"`
	SourceProjectID string          `json:"source_project_id"`
	BuildingID      string          `json:"building_id"`
	BuildingName    string          `json:"building_name"`
	RoomNo          string          `json:"room_no"`
	Floor           int             `json:"floor"`
	Area            decimal.Decimal `json:"area"`
	MainCategory    string          `json:"main_category"`
	SubCategory     string          `json:"sub_category"`
	FunctionSub     string          `json:"function_sub"`
	Type            RoomType        `json:"type"`
	Remark          *string         `json:"remark,omitempty"`
	AssignedTo      *string         `json:"assigned_to,omitempty"`
	AssignedAt      *time.Time      `json:"assigned_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// [自证通过] internal/model/inventory.go
