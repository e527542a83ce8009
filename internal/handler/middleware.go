package handler

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"lotterymarket/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

const sessionKeyPrefix = "session:token:"

// contextUserIDKey 认证中间件写入、各处理器读取的用户身份键
const contextUserIDKey = "user_id"

// AuthMiddleware 会话认证中间件
//
// 【关键点】用户身份只来自已验证的会话，绝不信任请求参数里的用户ID。
// 会话令牌由登录侧签发后写入 Redis（session:token:{token} -> userID），
// 这里只做校验和身份注入
func AuthMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		val, err := redisClient.Get(c.Request.Context(), sessionKeyPrefix+token).Result()
		if err != nil {
			response.Unauthorized(c, "会话已过期，请重新登录")
			c.Abort()
			return
		}

		userID, err := strconv.ParseInt(val, 10, 64)
		if err != nil || userID <= 0 {
			response.Unauthorized(c, "会话数据异常，请重新登录")
			c.Abort()
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// SessionKey 会话令牌在 Redis 中的 key，登录侧和测试共用
func SessionKey(token string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, token)
}

// currentUserID 读取认证中间件注入的用户ID
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(contextUserIDKey)
}
