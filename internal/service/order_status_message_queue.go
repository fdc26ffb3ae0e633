package service

import (
	"strings"

	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/queue"
)

// enqueueOrderStatusMessageIfEligible 订单有可达的联系方式时入队状态通知任务。
// 返回值 skipped 表示没有任何渠道可以通知（无邮箱且无手机号）。
func enqueueOrderStatusMessageIfEligible(queueClient *queue.Client, order *models.GuestOrder, status int) (skipped bool, err error) {
	if queueClient == nil || order == nil || order.OrderID == 0 {
		return true, nil
	}
	if strings.TrimSpace(order.Email) == "" &&
		strings.TrimSpace(order.Whatsapp) == "" &&
		strings.TrimSpace(order.Mobile) == "" {
		return true, nil
	}
	if err := queueClient.EnqueueOrderStatusMessage(queue.OrderStatusMessagePayload{
		OrderID: order.OrderID,
		Status:  status,
	}); err != nil {
		return false, err
	}
	return false, nil
}
