package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/service"
	pkgerrors "campus-asset/backend/pkg/errors"
	"campus-asset/backend/pkg/response"
)

// ProjectHandler 项目模块 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc}
}

// ListProjects 获取项目列表
// GET /api/v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	var req dto.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.projectSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetProject 获取项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	project, err := h.projectSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// CreateProject 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.Create(c.Request.Context(), &req, op)
	if err != nil {
		handleProjectError(c, err)
		return
	}

	response.Created(c, project)
}

// UpdateProject 更新项目基本信息
// PUT /api/v1/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.Update(c.Request.Context(), id, &req, op)
	if err != nil {
		handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// DeleteProject 删除项目，已投影的楼宇与房间保留
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "项目ID不能为空")
		return
	}

	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	if err := h.projectSvc.Delete(c.Request.Context(), id, op); err != nil {
		handleProjectError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleProjectError 统一处理项目相关业务错误，各项目子资源处理器共用
func handleProjectError(c *gin.Context, err error) {
	var gate *lifecycle.GateFailure
	switch {
	case errors.As(err, &gate):
		response.Conflict(c, 20002, gate.Error(), gate)
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 20001, "项目不存在")
	case errors.Is(err, service.ErrNoForwardEdge):
		response.Conflict(c, 20003, "当前状态没有可执行的前进动作", nil)
	case errors.Is(err, service.ErrNoBackwardEdge):
		response.Conflict(c, 20003, "当前状态不能审核退回", nil)
	case errors.Is(err, service.ErrAttachmentNotFound):
		response.NotFound(c, 20004, "附件不存在")
	case errors.Is(err, service.ErrRoomPlanConfirmed):
		response.Conflict(c, 20005, "房间功能规划已确认，请先取消确认", nil)
	case pkgerrors.IsOptimisticLock(err):
		response.Conflict(c, 20006, "数据已被其他操作修改，请刷新后重试", nil)
	case errors.Is(err, service.ErrProjectArchived):
		response.Conflict(c, 20007, "项目已归档，不能修改", nil)
	case errors.Is(err, service.ErrUnknownAttachmentKind):
		response.BadRequest(c, 20008, "附件类型不在要求目录中")
	case errors.Is(err, service.ErrInvalidStage):
		response.BadRequest(c, 20009, "无效的阶段")
	case errors.Is(err, service.ErrDuplicateRoomNo):
		response.BadRequest(c, 20010, "房间号重复")
	case errors.Is(err, service.ErrRoomPlanEmpty):
		response.Conflict(c, 20011, "房间功能规划为空，不能确认", nil)
	case errors.Is(err, service.ErrFileStorageDisabled), errors.Is(err, service.ErrAttachmentFileMissing):
		response.NotFound(c, 20012, "附件文件不可用")
	case errors.Is(err, service.ErrProjectNotArchived):
		response.Conflict(c, 20014, "项目尚未归档", nil)
	case errors.Is(err, service.ErrInvalidRoomNo):
		response.BadRequest(c, 20015, "房间号不能为空")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/project_handler.go
