package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/provider"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/service"

	"github.com/hibiken/asynq"
)

// SubmissionRunner 下单后续步骤的执行入口
type SubmissionRunner interface {
	RetryStep(ctx context.Context, orderID uint, step string) error
	ReconcileOrder(ctx context.Context, orderID uint) (*service.SubmissionReport, error)
	Reconcile(ctx context.Context) (int, error)
}

// StatusNotifier 订单状态通知
type StatusNotifier interface {
	SendStatusMessage(ctx context.Context, orderID uint, status int) error
}

// Consumer 异步任务消费者
type Consumer struct {
	submissions SubmissionRunner
	orders      StatusNotifier
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{}
	if c == nil {
		return consumer
	}
	if c.SubmissionService != nil {
		consumer.submissions = c.SubmissionService
	}
	if c.OrderService != nil {
		consumer.orders = c.OrderService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSubmissionStep, c.handleSubmissionStep)
	mux.HandleFunc(queue.TaskSubmissionReconcile, c.handleSubmissionReconcile)
	mux.HandleFunc(queue.TaskOrderStatusMessage, c.handleOrderStatusMessage)
}

// skipMissing 订单或步骤已不存在时不再重试
func skipMissing(err error) bool {
	return errors.Is(err, service.ErrOrderNotFound) || errors.Is(err, service.ErrSubmissionNotFound)
}

func (c *Consumer) handleSubmissionStep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_submission_step_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SubmissionStepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_submission_step_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.OrderID == 0 || payload.Step == "" {
		logger.Debugw("worker_submission_step_skip_invalid_payload", "order_id", payload.OrderID, "step", payload.Step)
		return nil
	}
	if c.submissions == nil {
		logger.Warnw("worker_submission_step_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	ctx = logger.IntoContext(ctx, "task", task.Type(), "order_id", payload.OrderID, "step", payload.Step)
	err := c.submissions.RetryStep(ctx, payload.OrderID, payload.Step)
	switch {
	case err == nil:
		return nil
	case skipMissing(err):
		logger.Debugw("worker_submission_step_skip_not_found", "order_id", payload.OrderID, "step", payload.Step)
		return nil
	case errors.Is(err, service.ErrSubmissionStepUnknown):
		logger.Warnw("worker_submission_step_unknown", "order_id", payload.OrderID, "step", payload.Step)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		logger.Warnw("worker_submission_step_failed", "order_id", payload.OrderID, "step", payload.Step, "error", err)
		return err
	}
}

func (c *Consumer) handleSubmissionReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_submission_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SubmissionReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_submission_reconcile_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.OrderID == 0 || c.submissions == nil {
		logger.Debugw("worker_submission_reconcile_skip", "order_id", payload.OrderID, "service_nil", c.submissions == nil)
		return nil
	}
	report, err := c.submissions.ReconcileOrder(ctx, payload.OrderID)
	if err != nil {
		if skipMissing(err) {
			logger.Debugw("worker_submission_reconcile_skip_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_submission_reconcile_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	logger.Infow("worker_submission_reconciled", "order_id", payload.OrderID, "complete", report.Complete)
	return nil
}

func (c *Consumer) handleOrderStatusMessage(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_status_message_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderStatusMessagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_status_message_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_status_message_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.orders == nil {
		logger.Warnw("worker_order_status_message_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	err := c.orders.SendStatusMessage(ctx, payload.OrderID, payload.Status)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrOrderNotFound):
		logger.Debugw("worker_order_status_message_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	case errors.Is(err, service.ErrOrderStatusInvalid):
		logger.Warnw("worker_order_status_message_invalid_status", "order_id", payload.OrderID, "status", payload.Status)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		logger.Warnw("worker_order_status_message_failed", "order_id", payload.OrderID, "status", payload.Status, "error", err)
		return err
	}
}
