package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/model"
	pkgerrors "campus-asset/backend/pkg/errors"
)

func TestProjectService_Create(t *testing.T) {
	env := setupTestEnv(false)
	ctx := context.Background()

	first := env.createProject(t, "学生活动中心")
	second := env.createProject(t, "游泳馆")
	if first != "XM-2026-0001" || second != "XM-2026-0002" {
		t.Errorf("期望按年度顺序编号，实际=%s,%s", first, second)
	}

	resp, err := env.svc.Project.GetByID(ctx, first)
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if resp.Status != model.StateInitiation || resp.DisplayStatus != model.StateInitiation.Label() {
		t.Errorf("期望初始状态为立项，实际=%s", resp.Status)
	}
	if resp.NextAction == nil || resp.NextAction.Next != model.StateConstruction {
		t.Errorf("期望前进动作为开工建设，实际=%v", resp.NextAction)
	}

	entries, total, _ := env.svc.Audit.List(ctx, &dto.AuditLogListRequest{Action: model.ActionCreate})
	if total != 2 || entries[0].Operator != testOperator.Name || entries[0].OperatorRole != testOperator.Role {
		t.Errorf("期望 2 条创建日志并记录操作人，实际 total=%d", total)
	}
	if _, ok := entries[0].ChangedFields["name"]; !ok {
		t.Error("创建日志应记录字段")
	}
}

func TestProjectService_GetByID_NotFound(t *testing.T) {
	env := setupTestEnv(false)

	if _, err := env.svc.Project.GetByID(context.Background(), "XM-2026-0404"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

func TestProjectService_List_Filter(t *testing.T) {
	env := setupTestEnv(false)
	ctx := context.Background()
	a := env.createProject(t, "学生活动中心")
	env.createProject(t, "游泳馆")
	env.mutate(t, a, func(p *model.Project) { p.Status = model.StateConstruction })

	items, total, err := env.svc.Project.List(ctx, &dto.ProjectListRequest{Status: "underconstruction"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || items[0].ID != a {
		t.Errorf("期望旧状态值按施工过滤，实际 total=%d", total)
	}

	items, total, _ = env.svc.Project.List(ctx, &dto.ProjectListRequest{Keyword: "泳"})
	if total != 1 || items[0].Name != "游泳馆" {
		t.Errorf("期望按关键字过滤，实际 total=%d", total)
	}

	archived := false
	_, total, _ = env.svc.Project.List(ctx, &dto.ProjectListRequest{Archived: &archived})
	if total != 2 {
		t.Errorf("期望 2 个未归档项目，实际=%d", total)
	}

	items, total, _ = env.svc.Project.List(ctx, &dto.ProjectListRequest{PaginationRequest: dto.PaginationRequest{Page: 2, PageSize: 1}})
	if total != 2 || len(items) != 1 || items[0].ID != a {
		t.Errorf("期望第 2 页为较早的项目，实际 total=%d items=%v", total, items)
	}
}

func TestProjectService_Update(t *testing.T) {
	env := setupTestEnv(false)
	ctx := context.Background()
	id := env.createProject(t, "学生活动中心")

	budget := decimal.RequireFromString("1500000.00")
	name := "大学生活动中心"
	resp, err := env.svc.Project.Update(ctx, id, &dto.UpdateProjectRequest{Name: &name, Budget: &budget}, testOperator)
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Name != name || resp.Version != 2 {
		t.Errorf("期望名称更新且版本为 2，实际 name=%s version=%d", resp.Name, resp.Version)
	}

	entries, _, _ := env.svc.Audit.List(ctx, &dto.AuditLogListRequest{Action: model.ActionUpdate})
	if len(entries) != 1 {
		t.Fatalf("期望 1 条更新日志，实际=%d", len(entries))
	}
	if len(entries[0].ChangedFields) != 2 {
		t.Errorf("期望记录 name 与 budget 两个字段，实际=%v", entries[0].ChangedFields)
	}

	stale := 1
	if _, err := env.svc.Project.Update(ctx, id, &dto.UpdateProjectRequest{Name: &name, Version: &stale}, testOperator); !pkgerrors.IsOptimisticLock(err) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestProjectService_Update_Archived(t *testing.T) {
	env := setupTestEnv(false)
	id := env.createProject(t, "学生活动中心")
	env.mutate(t, id, func(p *model.Project) {
		p.Status = model.StateArchive
		p.IsArchived = true
	})

	name := "新名称"
	if _, err := env.svc.Project.Update(context.Background(), id, &dto.UpdateProjectRequest{Name: &name}, testOperator); !errors.Is(err, ErrProjectArchived) {
		t.Errorf("期望 ErrProjectArchived，实际: %v", err)
	}
}

func TestProjectService_Delete_KeepsInventory(t *testing.T) {
	env := setupTestEnv(false)
	ctx := context.Background()
	p := archivedProject(t, env, "旧实验楼", planEntry("101", "科研用房", "实验室", 50))
	if err := env.svc.Inventory.Project(ctx, p, testOperator); err != nil {
		t.Fatalf("Project 应成功: %v", err)
	}

	if err := env.svc.Project.Delete(ctx, p.ID, testOperator); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := env.svc.Project.GetByID(ctx, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望项目已删除，实际: %v", err)
	}
	buildings, _ := env.repo.Building.List(ctx)
	rooms, _ := env.repo.Room.List(ctx)
	if len(buildings) != 1 || len(rooms) != 1 {
		t.Errorf("删除项目不应级联删除台账，实际 %d/%d", len(buildings), len(rooms))
	}
	if err := env.svc.Project.Delete(ctx, p.ID, testOperator); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

func TestAuditTrail_AppendFailureIsSwallowed(t *testing.T) {
	env := setupTestEnv(false)
	env.repo.AuditLog = &failingAuditRepo{AuditLogRepository: env.repo.AuditLog}

	id := env.createProject(t, "学生活动中心")
	if _, err := env.svc.Project.GetByID(context.Background(), id); err != nil {
		t.Errorf("日志写入失败不应影响业务写入: %v", err)
	}
}
