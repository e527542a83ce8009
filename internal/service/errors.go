package service

import (
	"errors"
)

// 购票失败的完整分类。业务拒绝原样返回给调用方，不在服务内重试；
// 并发冲突在服务内有界重试，超限后以 ErrStoreUnavailable 暴露，
// 因为任何失败路径都没有落库，调用方可以安全重试
var (
	ErrSoldOut             = errors.New("奖券已售罄")
	ErrLotteryClosed       = errors.New("抽奖活动已结束")
	ErrInsufficientBalance = errors.New("余额不足")
	ErrPriceChanged        = errors.New("票价已变更，请刷新后重试")
	ErrLotteryNotFound     = errors.New("抽奖活动不存在")
	ErrAccountNotFound     = errors.New("账户不存在")
	ErrTicketNotFound      = errors.New("奖券不存在")
	ErrStoreUnavailable    = errors.New("系统繁忙，请稍后重试")
)

// IsBusinessRejection 业务拒绝：状态合法、不应重试的预期失败
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrLotteryClosed) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrPriceChanged)
}
