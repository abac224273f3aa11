package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/model"
)

func planRequest(roomNos ...string) *dto.ReplaceRoomPlanRequest {
	req := &dto.ReplaceRoomPlanRequest{}
	for _, no := range roomNos {
		req.Entries = append(req.Entries, dto.RoomPlanEntryRequest{
			BuildingName: "1 号教学楼",
			RoomNo:       no,
			Area:         decimal.NewFromInt(60),
			MainCategory: "教学用房",
			SubCategory:  "教室",
		})
	}
	return req
}

func TestRoomPlanService_ReplaceConfirmUnconfirm(t *testing.T) {
	env := setupTestEnv(false)
	ctx := context.Background()
	id := env.createProject(t, "1 号教学楼")

	if _, err := env.svc.RoomPlan.Confirm(ctx, id, testOperator); !errors.Is(err, ErrRoomPlanEmpty) {
		t.Errorf("期望 ErrRoomPlanEmpty，实际: %v", err)
	}

	resp, err := env.svc.RoomPlan.Replace(ctx, id, planRequest("101", " 102 "), testOperator)
	if err != nil {
		t.Fatalf("Replace 应成功: %v", err)
	}
	if len(resp.RoomFunctionPlan) != 2 || resp.RoomFunctionPlan[1].RoomNo != "102" {
		t.Errorf("期望 2 条规划且房间号去空格，实际=%v", resp.RoomFunctionPlan)
	}
	for _, e := range resp.RoomFunctionPlan {
		if e.ID == "" {
			t.Error("期望自动分配规划 ID")
		}
	}

	resp, err = env.svc.RoomPlan.Confirm(ctx, id, testOperator)
	if err != nil {
		t.Fatalf("Confirm 应成功: %v", err)
	}
	if !resp.RoomFunctionPlanConfirmed || resp.RoomPlanConfirmedBy == nil || *resp.RoomPlanConfirmedBy != testOperator.Name {
		t.Errorf("期望已确认并记录确认人，实际=%+v", resp)
	}

	if _, err := env.svc.RoomPlan.Replace(ctx, id, planRequest("201"), testOperator); !errors.Is(err, ErrRoomPlanConfirmed) {
		t.Errorf("期望 ErrRoomPlanConfirmed，实际: %v", err)
	}

	resp, err = env.svc.RoomPlan.Unconfirm(ctx, id, testOperator)
	if err != nil {
		t.Fatalf("Unconfirm 应成功: %v", err)
	}
	if resp.RoomFunctionPlanConfirmed || resp.RoomPlanConfirmedAt != "" {
		t.Error("期望取消确认并清空确认时间")
	}

	actions := env.auditActions(t)
	for _, action := range []string{model.ActionRoomPlanUpdate, model.ActionRoomPlanConfirm, model.ActionRoomPlanUnconfirm} {
		if countAction(actions, action) != 1 {
			t.Errorf("期望 1 条 %s 日志，实际=%v", action, actions)
		}
	}
}

func TestRoomPlanService_Replace_DuplicateRoomNo(t *testing.T) {
	env := setupTestEnv(false)
	id := env.createProject(t, "1 号教学楼")

	if _, err := env.svc.RoomPlan.Replace(context.Background(), id, planRequest("101", "101"), testOperator); !errors.Is(err, ErrDuplicateRoomNo) {
		t.Errorf("期望 ErrDuplicateRoomNo，实际: %v", err)
	}
	if len(env.project(t, id).RoomFunctionPlan) != 0 {
		t.Error("校验失败不应写入规划")
	}
}

func TestRoomPlanService_Replace_BlankRoomNo(t *testing.T) {
	env := setupTestEnv(false)
	id := env.createProject(t, "1 号教学楼")

	if _, err := env.svc.RoomPlan.Replace(context.Background(), id, planRequest("101", "   "), testOperator); !errors.Is(err, ErrInvalidRoomNo) {
		t.Errorf("期望 ErrInvalidRoomNo，实际: %v", err)
	}
	if len(env.project(t, id).RoomFunctionPlan) != 0 {
		t.Error("校验失败不应写入规划")
	}
}

func TestRoomPlanService_Unconfirm_AfterArchive(t *testing.T) {
	env := setupTestEnv(false)
	id := env.createProject(t, "1 号教学楼")
	env.mutate(t, id, func(p *model.Project) {
		confirmedPlan(planEntry("101", "教学用房", "教室", 60))(p)
		p.Status = model.StateArchive
		p.IsArchived = true
	})

	if _, err := env.svc.RoomPlan.Unconfirm(context.Background(), id, testOperator); !errors.Is(err, ErrProjectArchived) {
		t.Errorf("期望 ErrProjectArchived，实际: %v", err)
	}
}
