package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"localcity/models"
	"localcity/services/tasks"
	"localcity/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ScheduledSender runs due campaign:send jobs. campaign.CampaignService
// satisfies it.
type ScheduledSender interface {
	SendScheduled(ctx context.Context, payload models.CampaignSendPayload) error
}

// CampaignWorker consumes the campaigns queue.
type CampaignWorker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewCampaignWorker(sender ScheduledSender, concurrency int) *CampaignWorker {
	if concurrency <= 0 {
		concurrency = 2
	}
	srv := asynq.NewServer(
		tasks.RedisOpt(),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				tasks.QueueName: 1,
			},
			ShutdownTimeout: 30 * time.Second,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCampaignSend, handleCampaignTask(sender))
	return &CampaignWorker{srv: srv, mux: mux}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *CampaignWorker) Start() {
	go func() {
		logger := utils.GetLogger()
		logger.Info("starting campaign worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			if errors.Is(err, asynq.ErrServerClosed) {
				return
			}
			logger.Warn("campaign worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("campaign worker gave up; scheduled campaigns will not be sent")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

// Shutdown stops fetching jobs and waits for running ones.
func (w *CampaignWorker) Shutdown() {
	w.srv.Shutdown()
}

func handleCampaignTask(sender ScheduledSender) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		p, err := tasks.ParseCampaignSendTask(task)
		if err != nil {
			logger.Error("invalid campaign task payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logger.Info("running scheduled campaign", zap.String("campaignID", p.CampaignID), zap.Time("scheduledAt", p.ScheduledAt))
		if err := sender.SendScheduled(ctx, p); err != nil {
			logger.Error("scheduled campaign failed", zap.String("campaignID", p.CampaignID), zap.Error(err))
			return err
		}
		return nil
	}
}
