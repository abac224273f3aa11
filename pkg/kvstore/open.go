package kvstore

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-asset/backend/config"
)

// Deps 各后端所需的外部连接，按 driver 取用
type Deps struct {
	DB            *gorm.DB
	Redis         goredis.UniversalClient
	ChannelPrefix string
	Logger        *zap.Logger
}

// Open 根据 store.driver 创建键值存储
func Open(cfg *config.StoreConfig, deps Deps) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		if deps.DB == nil {
			return nil, fmt.Errorf("store.driver=postgres 需要数据库连接")
		}
		return NewPostgresStore(deps.DB), nil
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("store.driver=redis 需要 Redis 连接")
		}
		return NewRedisStore(deps.Redis, deps.ChannelPrefix, deps.Logger), nil
	default:
		return nil, fmt.Errorf("不支持的存储驱动: %s", cfg.Driver)
	}
}
