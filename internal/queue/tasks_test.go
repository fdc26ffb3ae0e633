package queue

import (
	"encoding/json"
	"testing"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"
)

func TestSubmissionStepTaskPayload(t *testing.T) {
	task, err := NewSubmissionStepTask(SubmissionStepPayload{OrderID: 42, Step: constants.SubmissionStepEmail})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskSubmissionStep {
		t.Fatalf("task type want %s got %s", TaskSubmissionStep, task.Type())
	}
	var payload SubmissionStepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.OrderID != 42 || payload.Step != constants.SubmissionStepEmail {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("disabled client should report disabled")
	}
	if err := client.EnqueueSubmissionStep(SubmissionStepPayload{OrderID: 1, Step: "email"}, 0, 3); err != nil {
		t.Fatalf("disabled enqueue should be a no-op, got %v", err)
	}
	if err := client.EnqueueSubmissionReconcile(SubmissionReconcilePayload{OrderID: 1}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op, got %v", err)
	}
	var nilClient *Client
	if err := nilClient.EnqueueOrderStatusMessage(OrderStatusMessagePayload{OrderID: 1}); err != nil {
		t.Fatalf("nil client enqueue should be a no-op, got %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380})
	if opt.Addr != "redis:6380" {
		t.Fatalf("unexpected addr %s", opt.Addr)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("default concurrency want 10 got %d", cfg.Concurrency)
	}
	if cfg.Queues[constants.QueueCritical] <= cfg.Queues[DefaultQueue] {
		t.Fatalf("critical queue should have higher priority: %+v", cfg.Queues)
	}
}
