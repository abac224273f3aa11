package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore 基于 Redis 哈希的键值存储
//
// 每个键存为一个 hash：value / revision / updated_at。
// 写入后向 <channelPrefix><key> 发布变更消息，其他进程（浏览器多标签页的对应物）
// 经 PSubscribe 收到后分发给本地订阅者，消息中的 origin 用于忽略自己的写入。
type RedisStore struct {
	rdb           goredis.UniversalClient
	channelPrefix string
	origin        string
	now           func() time.Time
	events        *notifier
	logger        *zap.Logger

	cancel context.CancelFunc
	pubsub *goredis.PubSub
	wg     sync.WaitGroup
}

const redisKeyPrefix = "asset:kv:data:"

// setScript 覆盖写入：revision 自增
var setScript = goredis.NewScript(`
local rev = redis.call('HINCRBY', KEYS[1], 'revision', 1)
redis.call('HSET', KEYS[1], 'value', ARGV[1], 'updated_at', ARGV[2])
return rev
`)

// casScript 版本号一致才写入，返回 -1 表示冲突
var casScript = goredis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'revision') or '0')
if cur ~= tonumber(ARGV[3]) then
	return -1
end
local rev = redis.call('HINCRBY', KEYS[1], 'revision', 1)
redis.call('HSET', KEYS[1], 'value', ARGV[1], 'updated_at', ARGV[2])
return rev
`)

type redisMessage struct {
	Origin    string          `json:"origin"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Revision  int64           `json:"revision"`
	UpdatedAt int64           `json:"updated_at"`
}

// NewRedisStore 创建 Redis 存储并启动变更订阅
func NewRedisStore(rdb goredis.UniversalClient, channelPrefix string, logger *zap.Logger) *RedisStore {
	if channelPrefix == "" {
		channelPrefix = "asset:kv:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &RedisStore{
		rdb:           rdb,
		channelPrefix: channelPrefix,
		origin:        uuid.New().String(),
		now:           time.Now,
		events:        newNotifier(),
		logger:        logger,
		cancel:        cancel,
	}
	s.pubsub = rdb.PSubscribe(ctx, channelPrefix+"*")
	s.wg.Add(1)
	go s.listen(ctx)
	return s
}

func (s *RedisStore) listen(ctx context.Context) {
	defer s.wg.Done()
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m redisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				s.logger.Warn("解析 Redis 变更消息失败", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if m.Origin == s.origin {
				continue
			}
			s.events.publish(Change{
				Key:       m.Key,
				Value:     m.Value,
				Revision:  m.Revision,
				UpdatedAt: time.Unix(0, m.UpdatedAt),
				Remote:    true,
			})
		}
	}
}

func (s *RedisStore) dataKey(key string) string { return redisKeyPrefix + key }

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, s.dataKey(key)).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("读取键 %s 失败: %w", key, err)
	}
	if len(fields) == 0 {
		return Entry{Key: key}, false, nil
	}
	rev, _ := strconv.ParseInt(fields["revision"], 10, 64)
	ts, _ := strconv.ParseInt(fields["updated_at"], 10, 64)
	return Entry{
		Key:       key,
		Value:     json.RawMessage(fields["value"]),
		Revision:  rev,
		UpdatedAt: time.Unix(0, ts),
	}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value json.RawMessage) (Entry, error) {
	now := s.now()
	rev, err := setScript.Run(ctx, s.rdb, []string{s.dataKey(key)}, string(value), now.UnixNano()).Int64()
	if err != nil {
		return Entry{}, fmt.Errorf("写入键 %s 失败: %w", key, err)
	}
	return s.committed(ctx, key, value, rev, now), nil
}

func (s *RedisStore) CompareAndSet(ctx context.Context, key string, value json.RawMessage, expectedRevision int64) (Entry, error) {
	now := s.now()
	rev, err := casScript.Run(ctx, s.rdb, []string{s.dataKey(key)}, string(value), now.UnixNano(), expectedRevision).Int64()
	if err != nil {
		return Entry{}, fmt.Errorf("写入键 %s 失败: %w", key, err)
	}
	if rev < 0 {
		return Entry{}, ErrOptimisticLock
	}
	return s.committed(ctx, key, value, rev, now), nil
}

// committed 本地通知 + 跨进程广播；广播失败只记录日志，写入已生效
func (s *RedisStore) committed(ctx context.Context, key string, value json.RawMessage, rev int64, now time.Time) Entry {
	e := Entry{Key: key, Value: cloneRaw(value), Revision: rev, UpdatedAt: now}

	payload, err := json.Marshal(redisMessage{
		Origin:    s.origin,
		Key:       key,
		Value:     value,
		Revision:  rev,
		UpdatedAt: now.UnixNano(),
	})
	if err == nil {
		err = s.rdb.Publish(ctx, s.channelPrefix+key, payload).Err()
	}
	if err != nil {
		s.logger.Warn("广播键值变更失败", zap.String("key", key), zap.Error(err))
	}

	s.events.publish(Change{Key: key, Value: e.Value, Revision: rev, UpdatedAt: now})
	return e
}

func (s *RedisStore) Subscribe(key string, fn Listener) func() {
	return s.events.subscribe(key, fn)
}

// Close 停止订阅；Redis 连接由调用方管理
func (s *RedisStore) Close() error {
	s.cancel()
	err := s.pubsub.Close()
	s.wg.Wait()
	if err != nil && !errors.Is(err, goredis.ErrClosed) && !strings.Contains(err.Error(), "closed") {
		return err
	}
	return nil
}
