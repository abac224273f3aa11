package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"campus-asset/backend/internal/model"
	pkgerrors "campus-asset/backend/pkg/errors"
	"campus-asset/backend/pkg/kvstore"
)

func setupTestRepository(maxAudit int) (*Repository, *kvstore.MemoryStore) {
	store := kvstore.NewMemoryStore()
	return NewRepository(store, "fa_", maxAudit), store
}

// ── Project ──

func TestProjectRepo_CreateGetList(t *testing.T) {
	repo, _ := setupTestRepository(0)
	ctx := context.Background()

	for _, id := range []string{"XM-2026-0001", "XM-2026-0002"} {
		if err := repo.Project.Create(ctx, &model.Project{ID: id, Name: "项目" + id}); err != nil {
			t.Fatalf("Create 应成功: %v", err)
		}
	}

	list, err := repo.Project.List(ctx)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 2 || list[0].ID != "XM-2026-0002" {
		t.Errorf("期望新项目在前，实际=%v", list)
	}

	p, err := repo.Project.GetByID(ctx, "XM-2026-0001")
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if p.Version != 1 {
		t.Errorf("期望 Version=1，实际=%d", p.Version)
	}

	if _, err := repo.Project.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
	if err := repo.Project.Create(ctx, &model.Project{ID: "XM-2026-0001"}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("期望 ErrAlreadyExists，实际: %v", err)
	}
}

func TestProjectRepo_Update_StaleVersion(t *testing.T) {
	repo, _ := setupTestRepository(0)
	ctx := context.Background()
	_ = repo.Project.Create(ctx, &model.Project{ID: "XM-2026-0001", Name: "旧"})

	a, _ := repo.Project.GetByID(ctx, "XM-2026-0001")
	b, _ := repo.Project.GetByID(ctx, "XM-2026-0001")

	a.Name = "A"
	if err := repo.Project.Update(ctx, a); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if a.Version != 2 {
		t.Errorf("期望 Version=2，实际=%d", a.Version)
	}

	b.Name = "B"
	if err := repo.Project.Update(ctx, b); !pkgerrors.IsOptimisticLock(err) {
		t.Errorf("期望乐观锁冲突，实际: %v", err)
	}

	got, _ := repo.Project.GetByID(ctx, "XM-2026-0001")
	if got.Name != "A" {
		t.Errorf("期望保留先写入的 A，实际=%s", got.Name)
	}
}

func TestProjectRepo_Delete(t *testing.T) {
	repo, _ := setupTestRepository(0)
	ctx := context.Background()
	_ = repo.Project.Create(ctx, &model.Project{ID: "XM-2026-0001"})

	if err := repo.Project.Delete(ctx, "XM-2026-0001"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if err := repo.Project.Delete(ctx, "XM-2026-0001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}

func TestProjectRepo_NextSequence(t *testing.T) {
	repo, _ := setupTestRepository(0)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := repo.Project.NextSequence(ctx, 2026)
		if err != nil {
			t.Fatalf("NextSequence 应成功: %v", err)
		}
		if got != want {
			t.Errorf("期望序号=%d，实际=%d", want, got)
		}
	}
	if got, _ := repo.Project.NextSequence(ctx, 2027); got != 1 {
		t.Errorf("新年份应从 1 开始，实际=%d", got)
	}
}

// ── Building / Room ──

func TestBuildingRepo_ModifyAndUpdate(t *testing.T) {
	repo, store := setupTestRepository(0)
	ctx := context.Background()

	err := repo.Building.Modify(ctx, func(items []model.BuildingAsset) ([]model.BuildingAsset, bool, error) {
		return append(items, model.BuildingAsset{ID: "BLD-1", Name: "一号楼"}), true, nil
	})
	if err != nil {
		t.Fatalf("Modify 应成功: %v", err)
	}

	before, _, _ := store.Get(ctx, "fa_buildings")
	err = repo.Building.Modify(ctx, func(items []model.BuildingAsset) ([]model.BuildingAsset, bool, error) {
		return items, false, nil
	})
	if err != nil {
		t.Fatalf("Modify 应成功: %v", err)
	}
	after, _, _ := store.Get(ctx, "fa_buildings")
	if before.Revision != after.Revision {
		t.Error("未变更时不应写入")
	}

	b, err := repo.Building.GetByID(ctx, "BLD-1")
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	loc := "北校区"
	b.Location = &loc
	if err := repo.Building.Update(ctx, b); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if err := repo.Building.Update(ctx, &model.BuildingAsset{ID: "BLD-X"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}

	list, _ := repo.Building.List(ctx)
	if len(list) != 1 || list[0].Location == nil || *list[0].Location != "北校区" {
		t.Errorf("楼宇更新不正确: %+v", list)
	}
}

func TestRoomRepo_ModifyErrorAborts(t *testing.T) {
	repo, _ := setupTestRepository(0)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Room.Modify(ctx, func(items []model.RoomAsset) ([]model.RoomAsset, bool, error) {
		return nil, false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("期望返回修改函数的错误，实际: %v", err)
	}
	rooms, _ := repo.Room.List(ctx)
	if len(rooms) != 0 {
		t.Errorf("出错时不应写入，实际=%d", len(rooms))
	}
}

// ── AuditLog ──

func TestAuditLogRepo_CapEvictsOldest(t *testing.T) {
	repo, _ := setupTestRepository(1000)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 1005; i++ {
		entry := model.AuditLogEntry{
			ID:        fmt.Sprintf("log-%04d", i),
			Action:    model.ActionUpdate,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.AuditLog.Append(ctx, entry); err != nil {
			t.Fatalf("Append 应成功: %v", err)
		}
	}

	all, total, err := repo.AuditLog.List(ctx, AuditLogFilter{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1000 || len(all) != 1000 {
		t.Fatalf("期望 1000 条，实际 total=%d len=%d", total, len(all))
	}
	if all[0].ID != "log-1004" {
		t.Errorf("期望最新条目在前，实际=%s", all[0].ID)
	}
	for _, e := range all {
		for i := 0; i < 5; i++ {
			if e.ID == fmt.Sprintf("log-%04d", i) {
				t.Errorf("最旧的条目 %s 应被淘汰", e.ID)
			}
		}
	}
}

func TestAuditLogRepo_ListFilterAndPage(t *testing.T) {
	repo, _ := setupTestRepository(0)
	ctx := context.Background()

	_ = repo.AuditLog.Append(ctx, model.AuditLogEntry{ID: "1", Action: model.ActionCreate, EntityType: model.EntityProject, EntityID: "P1"})
	_ = repo.AuditLog.Append(ctx, model.AuditLogEntry{ID: "2", Action: model.ActionStatusChange, EntityType: model.EntityProject, EntityID: "P1"})
	_ = repo.AuditLog.Append(ctx, model.AuditLogEntry{ID: "3", Action: model.ActionInventorySync, EntityType: model.EntityBuilding, EntityID: "BLD-P1"})

	list, total, _ := repo.AuditLog.List(ctx, AuditLogFilter{EntityType: model.EntityProject, EntityID: "P1"})
	if total != 2 || list[0].ID != "2" {
		t.Errorf("按实体过滤不正确: total=%d list=%v", total, list)
	}

	list, total, _ = repo.AuditLog.List(ctx, AuditLogFilter{Offset: 1, Limit: 1})
	if total != 3 || len(list) != 1 || list[0].ID != "2" {
		t.Errorf("分页不正确: total=%d list=%v", total, list)
	}

	list, _, _ = repo.AuditLog.List(ctx, AuditLogFilter{Offset: 10})
	if len(list) != 0 {
		t.Errorf("越界偏移应返回空列表，实际=%d", len(list))
	}
}

func TestRepository_Key(t *testing.T) {
	repo, _ := setupTestRepository(0)
	if k, ok := repo.Key(CollectionRooms); !ok || k != "fa_rooms" {
		t.Errorf("期望 fa_rooms，实际=%s", k)
	}
	if _, ok := repo.Key("users"); ok {
		t.Error("未知集合应返回 false")
	}
}
