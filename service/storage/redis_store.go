package storage

import (
	"context"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sybui2004/SeaU-sub001/tools/errs"
)

// RedisStore keeps the presence table in Redis so it survives a gateway
// restart and is readable by sibling processes. Same Store contract as
// MemoryStore; announce/forget are Lua scripts so the two indexes (conn hash,
// per-user set) move atomically.
//
// Snapshot order is connID order, not arrival order. Connection IDs are
// snowflakes, so for a single node that still approximates arrival order.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
}

// ===== Lua scripts =====

// Atomic announce.
// KEYS[1] = conn hash (<prefix>:conns)
// ARGV[1] = connID
// ARGV[2] = userID
// ARGV[3] = key prefix
// Returns 1 inserted, 0 duplicate (same user already on this conn),
// 2 rebound (conn moved to a different user).
const luaAnnounce = `
local owner = redis.call("HGET", KEYS[1], ARGV[1])
if owner == ARGV[2] then
  return 0
end
local ret = 1
if owner then
  redis.call("SREM", ARGV[3] .. ":u:" .. owner, ARGV[1])
  ret = 2
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("SADD", ARGV[3] .. ":u:" .. ARGV[2], ARGV[1])
return ret
`

// Atomic forget; idempotent.
// KEYS[1] = conn hash
// ARGV[1] = connID
// ARGV[2] = key prefix
// Returns 1 removed, 0 unknown conn.
const luaForget = `
local owner = redis.call("HGET", KEYS[1], ARGV[1])
if not owner then
  return 0
end
redis.call("HDEL", KEYS[1], ARGV[1])
redis.call("SREM", ARGV[2] .. ":u:" .. owner, ARGV[1])
return 1
`

var (
	announceScript = goredis.NewScript(luaAnnounce)
	forgetScript   = goredis.NewScript(luaForget)
)

func NewRedisStore(rdb *goredis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "presence"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) connsKey() string          { return s.prefix + ":conns" }
func (s *RedisStore) userKey(uid string) string { return s.prefix + ":u:" + uid }

func (s *RedisStore) Announce(ctx context.Context, userID, connID string) (bool, error) {
	if connID == "" {
		return false, nil
	}
	n, err := announceScript.Run(ctx, s.rdb,
		[]string{s.connsKey()}, connID, userID, s.prefix).Int()
	if err != nil {
		return false, errs.ErrStoreFailure.WrapMsg("announce", "conn", connID, "err", err)
	}
	return n != 0, nil
}

func (s *RedisStore) Forget(ctx context.Context, connID string) (bool, error) {
	n, err := forgetScript.Run(ctx, s.rdb,
		[]string{s.connsKey()}, connID, s.prefix).Int()
	if err != nil {
		return false, errs.ErrStoreFailure.WrapMsg("forget", "conn", connID, "err", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Resolve(ctx context.Context, userID string) ([]string, error) {
	conns, err := s.rdb.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("resolve", "user", userID, "err", err)
	}
	sort.Strings(conns)
	return conns, nil
}

func (s *RedisStore) Snapshot(ctx context.Context) ([]Entry, error) {
	m, err := s.rdb.HGetAll(ctx, s.connsKey()).Result()
	if err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("snapshot", "err", err)
	}
	out := make([]Entry, 0, len(m))
	for conn, user := range m {
		out = append(out, Entry{UserID: user, ConnID: conn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out, nil
}

func (s *RedisStore) Close() error { return nil }
