package handler

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"lotterymarket/internal/config"
	"lotterymarket/internal/repository"
	"lotterymarket/internal/service"
	"lotterymarket/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService  *service.AccountService
	lotteryService  *service.LotteryService
	purchaseService *service.PurchaseService
	listingService  *service.ListingService
	sessionService  *service.SessionService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		accountService:  service.NewAccountService(db),
		lotteryService:  service.NewLotteryService(db, cfg),
		purchaseService: service.NewPurchaseService(db, rdb, cfg),
		listingService:  service.NewListingService(db),
		sessionService:  service.NewSessionService(rdb, cfg),
	}
}

// ============================================================
// 会话相关接口
// ============================================================

// LoginRequest 登录请求（简化版，凭证校验应对接账号体系）
type LoginRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

// Login 签发会话令牌
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	token, err := h.sessionService.IssueToken(c.Request.Context(), req.UserID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"token": token,
	})
}

// Logout 注销当前会话
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	token, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.sessionService.RevokeToken(c.Request.Context(), token); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "已退出登录",
	})
}

// ============================================================
// 账户相关接口
// ============================================================

// GetBalance 查询当前用户余额
// GET /api/v1/account/balance
func (h *Handler) GetBalance(c *gin.Context) {
	userID := currentUserID(c)

	account, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"user_id": account.UserID,
		"balance": account.Balance,
	})
}

// RechargeRequest 充值请求
type RechargeRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Recharge 充值接口（简化版，实际应该走支付渠道）
// POST /api/v1/account/recharge
func (h *Handler) Recharge(c *gin.Context) {
	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.accountService.Recharge(c.Request.Context(), currentUserID(c), req.Amount); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "充值成功",
	})
}

// ListTransactions 查询当前用户账户流水
// GET /api/v1/account/transactions?page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	page, pageSize := pageParams(c)

	transactions, total, err := h.accountService.ListTransactions(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 购票接口（核心）
// ============================================================

// PurchaseTicketRequest 购票请求
// 用户身份来自会话，请求体只携带活动和客户端看到的票价
type PurchaseTicketRequest struct {
	LotteryID     int64 `json:"lottery_id" binding:"required"`
	ExpectedPrice int64 `json:"expected_price" binding:"required,gt=0"`
}

// PurchaseTicket 购买奖券
// POST /api/v1/ticket/purchase
//
// 【关键点】购票是整个系统最核心的操作：
//  1. 原子性：售票计数、余额扣减、奖券落库同时成功或同时失败
//  2. 失败无副作用：任何失败分类返回时，库里没有任何残留变更
//  3. 失败分类逐一映射为业务码，存储层内部错误不透出
//
// 网关层不做请求去重：请求超时后重试、且两次都到达购票服务时，
// 会产生两张奖券两笔扣款。超时回滚不在服务端承诺范围内，
// 去重如有需要应由调用方携带幂等键实现
func (h *Handler) PurchaseTicket(c *gin.Context) {
	var req PurchaseTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), &service.PurchaseRequest{
		UserID:        currentUserID(c),
		LotteryID:     req.LotteryID,
		ExpectedPrice: req.ExpectedPrice,
	})
	if err != nil {
		// 业务拒绝是预期失败，只有存储侧异常才值得记日志
		if !service.IsBusinessRejection(err) {
			log.Printf("[Handler] 购票失败: userID=%d, lotteryID=%d, err=%v", currentUserID(c), req.LotteryID, err)
		}
		response.BusinessError(c, purchaseErrorCode(err), err.Error())
		return
	}

	response.Success(c, result)
}

// purchaseErrorCode 失败分类 -> 业务码
func purchaseErrorCode(err error) int {
	switch {
	case errors.Is(err, service.ErrSoldOut):
		return response.CodeSoldOut
	case errors.Is(err, service.ErrLotteryClosed):
		return response.CodeLotteryClosed
	case errors.Is(err, service.ErrInsufficientBalance):
		return response.CodeInsufficientBalance
	case errors.Is(err, service.ErrPriceChanged):
		return response.CodePriceChanged
	case errors.Is(err, service.ErrLotteryNotFound), errors.Is(err, service.ErrAccountNotFound):
		return response.CodeTargetNotFound
	default:
		return response.CodeStoreUnavailable
	}
}

// TicketDetail 查询奖券详情（仅持有者可见）
// GET /api/v1/ticket/detail?ticket_no=xxx
func (h *Handler) TicketDetail(c *gin.Context) {
	ticketNo := c.Query("ticket_no")
	if ticketNo == "" {
		response.ParamError(c, "ticket_no 参数错误")
		return
	}

	detail, err := h.purchaseService.GetTicketDetail(c.Request.Context(), ticketNo, currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			response.BusinessError(c, response.CodeTargetNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, detail)
}

// MyTickets 查询当前用户的奖券
// GET /api/v1/ticket/my?page=1&page_size=10
func (h *Handler) MyTickets(c *gin.Context) {
	page, pageSize := pageParams(c)

	tickets, total, err := h.lotteryService.ListUserTickets(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      tickets,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 抽奖活动接口
// ============================================================

// ListLotteries 查询在售活动
// GET /api/v1/lottery/list?page=1&page_size=10
func (h *Handler) ListLotteries(c *gin.Context) {
	page, pageSize := pageParams(c)

	lotteries, total, err := h.lotteryService.ListActiveLotteries(c.Request.Context(), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      lotteries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetLottery 查询活动详情
// GET /api/v1/lottery/detail?lottery_id=xxx
func (h *Handler) GetLottery(c *gin.Context) {
	lotteryID, err := strconv.ParseInt(c.Query("lottery_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "lottery_id 参数错误")
		return
	}

	lottery, err := h.lotteryService.GetLottery(c.Request.Context(), lotteryID)
	if err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			response.BusinessError(c, response.CodeTargetNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, lottery)
}

// CreateLotteryRequest 创建活动请求
type CreateLotteryRequest struct {
	ListingID   *int64 `json:"listing_id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	UnitPrice   int64  `json:"unit_price" binding:"required,gt=0"`
	Capacity    int    `json:"capacity" binding:"required,gt=0"`
	EndsAt      string `json:"ends_at" binding:"required"` // RFC3339
}

// CreateLottery 创建抽奖活动（以自己的商品作为奖品）
// POST /api/v1/lottery/create
func (h *Handler) CreateLottery(c *gin.Context) {
	var req CreateLotteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		response.ParamError(c, "ends_at 格式错误，需要 RFC3339")
		return
	}

	lottery, err := h.lotteryService.CreateLottery(c.Request.Context(), &service.CreateLotteryRequest{
		SellerID:    currentUserID(c),
		ListingID:   req.ListingID,
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		UnitPrice:   req.UnitPrice,
		Capacity:    req.Capacity,
		EndsAt:      endsAt,
	})
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, lottery)
}

// MyLotteries 查询当前用户发起的活动
// GET /api/v1/lottery/mine?page=1&page_size=10
func (h *Handler) MyLotteries(c *gin.Context) {
	page, pageSize := pageParams(c)

	lotteries, total, err := h.lotteryService.ListSellerLotteries(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      lotteries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListLotteryTickets 卖家查看自己活动的售票明细
// GET /api/v1/lottery/tickets?lottery_id=xxx
func (h *Handler) ListLotteryTickets(c *gin.Context) {
	lotteryID, err := strconv.ParseInt(c.Query("lottery_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "lottery_id 参数错误")
		return
	}

	tickets, err := h.lotteryService.ListLotteryTickets(c.Request.Context(), lotteryID, currentUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			response.BusinessError(c, response.CodeTargetNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":  tickets,
		"total": len(tickets),
	})
}

// CloseLottery 卖家提前关闭活动
// POST /api/v1/lottery/close
func (h *Handler) CloseLottery(c *gin.Context) {
	var req struct {
		LotteryID int64 `json:"lottery_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.lotteryService.CloseLottery(c.Request.Context(), req.LotteryID, currentUserID(c)); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "活动已关闭",
	})
}

// ============================================================
// 商品相关接口
// ============================================================

// CreateListingRequest 创建商品请求
type CreateListingRequest struct {
	Title       string `json:"title" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Price       int64  `json:"price" binding:"required,gt=0"`
}

// CreateListing 创建商品
// POST /api/v1/listing/create
func (h *Handler) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), &service.CreateListingRequest{
		SellerID:    currentUserID(c),
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
	})
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, listing)
}

// ListListings 查询在售商品
// GET /api/v1/listing/list?page=1&page_size=10
func (h *Handler) ListListings(c *gin.Context) {
	page, pageSize := pageParams(c)

	listings, total, err := h.listingService.ListActiveListings(c.Request.Context(), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      listings,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListArchivedListings 查询当前用户的归档商品（含已删除）
// GET /api/v1/listing/archived
func (h *Handler) ListArchivedListings(c *gin.Context) {
	listings, err := h.listingService.ListArchived(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list": listings,
	})
}

type listingActionRequest struct {
	ListingID int64 `json:"listing_id" binding:"required"`
}

// ArchiveListing 下架归档商品
// POST /api/v1/listing/archive
func (h *Handler) ArchiveListing(c *gin.Context) {
	h.listingAction(c, h.listingService.Archive, "商品已归档")
}

// RestoreListing 归档商品重新上架
// POST /api/v1/listing/restore
func (h *Handler) RestoreListing(c *gin.Context) {
	h.listingAction(c, h.listingService.Restore, "商品已重新上架")
}

// DeleteListing 删除商品（软删除）
// POST /api/v1/listing/delete
func (h *Handler) DeleteListing(c *gin.Context) {
	h.listingAction(c, h.listingService.Delete, "商品已删除")
}

func (h *Handler) listingAction(c *gin.Context, action func(ctx context.Context, listingID, sellerID int64) error, okMessage string) {
	var req listingActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := action(c.Request.Context(), req.ListingID, currentUserID(c)); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": okMessage,
	})
}

// pageParams 统一解析分页参数
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}
