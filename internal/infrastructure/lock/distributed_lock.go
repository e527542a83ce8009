package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么购票要加分布式锁？】
//
// 热门抽奖开售的瞬间，同一个活动会涌入大量购票请求。
// 数据库的 CAS 条件更新本身已经保证不会超卖、不会发出同号奖券，
// 但是几百个事务同时提交，只有一个能命中守卫条件，其余全部回滚重试，
// 数据库在做大量无效功。
//
// 按活动维度加锁后，同一个活动的购票在 Redis 入口处排队，
// 事务到达数据库时冲突率大幅下降；不同活动之间完全不受影响。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证原子性
//   - 先检查 value 是否是自己的
//   - 再删除 key
//
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】使用 Lua 脚本保证"检查+删除"操作的原子性
//
// 为什么要检查 value？
//
//	场景：A 获取锁 -> A 处理超时，锁自动过期 -> B 获取锁 -> A 执行完毕，调用 Unlock
//	如果不检查 value，A 会把 B 的锁删掉！
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// 便捷函数：基于活动维度的购票锁
// ============================================================================

// NewPurchaseLock 创建购票锁（按抽奖活动维度）
//
// 【设计思考】为什么按活动维度而不是按用户维度加锁？
//
// 购票要守护的临界区是活动的售票计数器：奖券号来源于它，
// 容量上限约束它。两个不同用户买同一个活动的票才是真正的竞争；
// 同一个用户对不同活动的购票互不相干。
//
// 账户余额的并发扣减不需要第二把锁——扣款走同一个数据库事务里的
// 版本号 CAS，两笔并发扣款不可能都基于同一个旧余额通过校验
func NewPurchaseLock(client *redis.Client, lotteryID int64, holder string) *DistributedLock {
	key := fmt.Sprintf("purchase:lock:lottery:%d", lotteryID)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}
