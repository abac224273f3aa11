package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/model"
	"campus-asset/backend/internal/repository"
)

// ── 状态流转业务错误 ──

var (
	ErrNoForwardEdge  = errors.New("当前状态没有可执行的前进动作")
	ErrNoBackwardEdge = errors.New("当前状态不能审核退回")
)

// LifecycleService 项目生命周期流转接口
//
// 门禁未通过时返回 *lifecycle.GateFailure，项目不做任何修改。
type LifecycleService interface {
	Stages() []lifecycle.StageRequirements
	NextAction(ctx context.Context, projectID string) (*dto.NextActionResponse, error)
	Advance(ctx context.Context, projectID, notes string, op model.Operator) (*dto.ProjectResponse, error)
	RequestArchive(ctx context.Context, projectID, notes string, op model.Operator) (*dto.ProjectResponse, error)
	RejectReview(ctx context.Context, projectID, reason string, op model.Operator) (*dto.ProjectResponse, error)
}

type lifecycleService struct {
	repo      *repository.Repository
	inventory InventoryService
	audit     *auditTrail
	mu        sync.Locker
	logger    *zap.Logger
}

// NewLifecycleService 创建 LifecycleService 实例
func NewLifecycleService(
	repo *repository.Repository,
	inventory InventoryService,
	writeLock sync.Locker,
	logger *zap.Logger,
) LifecycleService {
	return &lifecycleService{
		repo:      repo,
		inventory: inventory,
		audit:     newAuditTrail(repo, logger),
		mu:        writeLock,
		logger:    logger,
	}
}

func (s *lifecycleService) Stages() []lifecycle.StageRequirements {
	return lifecycle.AllRequirements()
}

// ────────────────────── NextAction ──────────────────────

func (s *lifecycleService) NextAction(ctx context.Context, projectID string) (*dto.NextActionResponse, error) {
	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	resp := &dto.NextActionResponse{
		ProjectID:     p.ID,
		Status:        p.Status,
		DisplayStatus: p.DisplayStatus(),
		Completion:    dto.NewCompletionResponse(lifecycle.Evaluate(lifecycle.ArchiveGateStage(p.Status), p.Attachments)),
	}

	if gate := lifecycle.CheckArchiveGate(p); gate != nil {
		resp.ArchiveGate = gate
	} else {
		resp.CanArchive = true
	}
	_, resp.CanReject = lifecycle.ReturnTarget(p.Status, p.IsArchived)

	if p.IsFinallyArchived() {
		return resp, nil
	}
	resp.Action = lifecycle.NextAction(p.Status)

	switch {
	case archivesOnAdvance(p):
		resp.CanAdvance = resp.CanArchive
		resp.AdvanceGate = resp.ArchiveGate
	case resp.Action != nil:
		if gate := lifecycle.CheckAdvanceGate(p); gate != nil {
			resp.AdvanceGate = gate
		} else {
			resp.CanAdvance = true
		}
	}
	return resp, nil
}

// ────────────────────── Advance ──────────────────────

func (s *lifecycleService) Advance(ctx context.Context, projectID, notes string, op model.Operator) (*dto.ProjectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsFinallyArchived() {
		return nil, ErrProjectArchived
	}
	if archivesOnAdvance(p) {
		return s.archive(ctx, p, notes, op)
	}

	action := lifecycle.NextAction(p.Status)
	if action == nil {
		return nil, ErrNoForwardEdge
	}
	if gate := lifecycle.CheckAdvanceGate(p); gate != nil {
		return nil, gate
	}

	return s.transition(ctx, p, action.Next, false, action.Label, notes, op)
}

// ────────────────────── RequestArchive ──────────────────────

func (s *lifecycleService) RequestArchive(ctx context.Context, projectID, notes string, op model.Operator) (*dto.ProjectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}
	return s.archive(ctx, p, notes, op)
}

// archive 门禁通过后归档并投影资产台账，投影失败不影响归档结果
func (s *lifecycleService) archive(ctx context.Context, p *model.Project, notes string, op model.Operator) (*dto.ProjectResponse, error) {
	if gate := lifecycle.CheckArchiveGate(p); gate != nil {
		s.logger.Info("归档门禁未通过",
			zap.String("project_id", p.ID),
			zap.String("stage", string(gate.Stage)),
			zap.Int("reasons", len(gate.Reasons)),
		)
		return nil, gate
	}

	resp, err := s.transition(ctx, p, model.StateArchive, true, lifecycle.MilestoneArchived, notes, op)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Project(ctx, p, op); err != nil {
		s.logger.Warn("资产台账同步失败，归档已完成",
			zap.String("project_id", p.ID),
			zap.Error(err),
		)
	}
	return resp, nil
}

// ────────────────────── RejectReview ──────────────────────

func (s *lifecycleService) RejectReview(ctx context.Context, projectID, reason string, op model.Operator) (*dto.ProjectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	target, ok := lifecycle.ReturnTarget(p.Status, p.IsArchived)
	if !ok {
		return nil, ErrNoBackwardEdge
	}
	return s.transition(ctx, p, target, false, lifecycle.MilestoneReturned, reason, op)
}

// ── 内部辅助方法 ──

// archivesOnAdvance 转固审核与待归档阶段的前进动作即归档
func archivesOnAdvance(p *model.Project) bool {
	return p.Status == model.StateTransferIn || p.IsPendingArchive()
}

// transition 写入状态、里程碑与 status_change 日志
func (s *lifecycleService) transition(
	ctx context.Context,
	p *model.Project,
	to model.LifecycleState,
	archived bool,
	milestone, notes string,
	op model.Operator,
) (*dto.ProjectResponse, error) {
	from := p.Status
	changed := lifecycle.Apply(p, to, archived, milestone, notes, op, s.audit.now())
	if err := saveProject(ctx, s.repo, s.logger, p); err != nil {
		return nil, err
	}

	s.audit.record(ctx, model.ActionStatusChange, model.EntityProject, p.ID, p.Name, changed, op)
	s.logger.Info("项目状态已变更",
		zap.String("project_id", p.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("archived", archived),
		zap.String("operator", op.Name),
	)
	return dto.NewProjectResponse(p), nil
}

// [自证通过] internal/service/lifecycle_service.go
