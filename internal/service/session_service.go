package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"lotterymarket/internal/config"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "session:token:"

// SessionService 会话签发
// 简化版登录：这里只负责签发和写入 Redis，凭证校验应对接账号体系。
// 认证中间件持有同样的 key 约定（session:token:{token} -> userID）
type SessionService struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewSessionService(redisClient *redis.Client, cfg *config.Config) *SessionService {
	ttlMinutes := cfg.Business.SessionTTLMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 120
	}
	return &SessionService{
		redisClient: redisClient,
		ttl:         time.Duration(ttlMinutes) * time.Minute,
	}
}

// IssueToken 为用户签发会话令牌
func (s *SessionService) IssueToken(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成会话令牌失败: %w", err)
	}
	token := hex.EncodeToString(buf)

	key := sessionKeyPrefix + token
	if err := s.redisClient.Set(ctx, key, fmt.Sprintf("%d", userID), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("写入会话失败: %w", err)
	}

	return token, nil
}

// RevokeToken 注销会话
func (s *SessionService) RevokeToken(ctx context.Context, token string) error {
	return s.redisClient.Del(ctx, sessionKeyPrefix+token).Err()
}
