package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"campus-asset/backend/config"
	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/model"
	"campus-asset/backend/internal/repository"
	"campus-asset/backend/pkg/kvstore"
	"campus-asset/backend/pkg/storage"
)

// ── 测试环境 ──

var errStoreDown = errors.New("存储不可用")

var (
	testOperator = model.Operator{Name: "张老师", Role: "asset_admin", Dept: "国资处"}
	testLoc      = "东校区 3 号地块"
	testCampus   = "东校区"
)

type testEnv struct {
	store *kvstore.MemoryStore
	repo  *repository.Repository
	files *storage.MemoryStorage
	svc   *Service
}

func setupTestEnv(autoAdvance bool) *testEnv {
	store := kvstore.NewMemoryStore()
	repo := repository.NewRepository(store, "fa_", 0)
	files := storage.NewMemoryStorage()
	cfg := &config.Config{Feature: config.FeatureConfig{AutoAdvanceOnApproval: autoAdvance}}
	return &testEnv{
		store: store,
		repo:  repo,
		files: files,
		svc:   NewService(cfg, repo, files, zap.NewNop()),
	}
}

// createProject 通过 ProjectService 创建项目并返回 ID
func (e *testEnv) createProject(t *testing.T, name string) string {
	t.Helper()
	loc, campus := testLoc, testCampus
	resp, err := e.svc.Project.Create(context.Background(), &dto.CreateProjectRequest{
		Name:           name,
		Year:           2026,
		Location:       &loc,
		Campus:         &campus,
		ManagementDept: "后勤处",
		Budget:         decimal.NewFromInt(1200000),
	}, testOperator)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	return resp.ID
}

// mutate 直接修改存储中的项目，用于构造测试前置状态
func (e *testEnv) mutate(t *testing.T, id string, fn func(p *model.Project)) {
	t.Helper()
	ctx := context.Background()
	p, err := e.repo.Project.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	fn(p)
	if err := e.repo.Project.Update(ctx, p); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
}

func (e *testEnv) project(t *testing.T, id string) *model.Project {
	t.Helper()
	p, err := e.repo.Project.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	return p
}

func (e *testEnv) auditActions(t *testing.T) []string {
	t.Helper()
	entries, _, err := e.repo.AuditLog.List(context.Background(), repository.AuditLogFilter{Limit: 1000})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func countAction(actions []string, action string) int {
	n := 0
	for _, a := range actions {
		if a == action {
			n++
		}
	}
	return n
}

// withStage 把项目放到指定阶段，并为 stages 中各阶段的必需附件补齐指定审核状态
func withStage(state model.LifecycleState, status model.ReviewStatus, stages ...model.LifecycleState) func(p *model.Project) {
	return func(p *model.Project) {
		p.Status = state
		for _, st := range stages {
			for _, kind := range lifecycle.RequirementsFor(st).RequiredKinds() {
				p.Attachments = append(p.Attachments, model.Attachment{
					ID:         "att-" + string(st) + "-" + kind,
					Kind:       kind,
					Stage:      st,
					FileName:   kind + ".pdf",
					Status:     status,
					UploadedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				})
			}
		}
	}
}

func confirmedPlan(entries ...model.RoomPlanEntry) func(p *model.Project) {
	return func(p *model.Project) {
		p.RoomFunctionPlan = entries
		p.RoomFunctionPlanConfirmed = true
	}
}

func planEntry(roomNo, main, sub string, area int64) model.RoomPlanEntry {
	return model.RoomPlanEntry{
		ID:           "plan-" + roomNo,
		BuildingName: "青年教师公寓 1 号楼",
		RoomNo:       roomNo,
		Area:         decimal.NewFromInt(area),
		MainCategory: main,
		SubCategory:  sub,
	}
}

// ── 故障注入 ──

// failingBuildingRepo 写入楼宇集合时返回错误
type failingBuildingRepo struct {
	repository.BuildingRepository
}

func (f *failingBuildingRepo) Modify(context.Context, func([]model.BuildingAsset) ([]model.BuildingAsset, bool, error)) error {
	return errStoreDown
}

// failingRoomRepo 读写房间集合都返回错误
type failingRoomRepo struct {
	repository.RoomRepository
}

func (f *failingRoomRepo) List(context.Context) ([]model.RoomAsset, error) {
	return nil, errStoreDown
}

func (f *failingRoomRepo) Modify(context.Context, func([]model.RoomAsset) ([]model.RoomAsset, bool, error)) error {
	return errStoreDown
}

// failingAuditRepo 追加日志时返回错误
type failingAuditRepo struct {
	repository.AuditLogRepository
}

func (f *failingAuditRepo) Append(context.Context, model.AuditLogEntry) error {
	return errStoreDown
}
