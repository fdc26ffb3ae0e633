package queue

import (
	"encoding/json"

	"github.com/bazaar-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSubmissionStep 重试单个下单步骤
	TaskSubmissionStep = constants.TaskSubmissionStep
	// TaskSubmissionReconcile 补偿某订单全部未完成步骤
	TaskSubmissionReconcile = constants.TaskSubmissionRecheck
	// TaskOrderStatusMessage 订单状态变更通知
	TaskOrderStatusMessage = constants.TaskOrderStatusMessage
)

// SubmissionStepPayload 步骤重试任务载荷
type SubmissionStepPayload struct {
	OrderID uint   `json:"order_id"`
	Step    string `json:"step"`
}

// SubmissionReconcilePayload 订单补偿任务载荷
type SubmissionReconcilePayload struct {
	OrderID uint `json:"order_id"`
}

// OrderStatusMessagePayload 订单状态通知载荷
type OrderStatusMessagePayload struct {
	OrderID uint `json:"order_id"`
	Status  int  `json:"status"`
}

// NewSubmissionStepTask 创建步骤重试任务
func NewSubmissionStepTask(payload SubmissionStepPayload) (*asynq.Task, error) {
	return newJSONTask(TaskSubmissionStep, payload)
}

// NewSubmissionReconcileTask 创建订单补偿任务
func NewSubmissionReconcileTask(payload SubmissionReconcilePayload) (*asynq.Task, error) {
	return newJSONTask(TaskSubmissionReconcile, payload)
}

// NewOrderStatusMessageTask 创建订单状态通知任务
func NewOrderStatusMessageTask(payload OrderStatusMessagePayload) (*asynq.Task, error) {
	return newJSONTask(TaskOrderStatusMessage, payload)
}

func newJSONTask(typename string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, body), nil
}
