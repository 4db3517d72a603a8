package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"localcity/config"
	"localcity/models"

	"github.com/hibiken/asynq"
)

const TypeCampaignSend = "campaign:send"

// QueueName is the asynq queue campaign jobs run on.
const QueueName = "campaigns"

// RedisOpt returns the asynq connection settings for the job queue database.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewCampaignSendTask builds the delayed job that sends a scheduled campaign at fireAt.
func NewCampaignSendTask(payload models.CampaignSendPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode campaign task: %w", err)
	}
	task := asynq.NewTask(TypeCampaignSend, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.Queue(QueueName),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

// ParseCampaignSendTask decodes the payload of a campaign:send job.
func ParseCampaignSendTask(task *asynq.Task) (models.CampaignSendPayload, error) {
	var p models.CampaignSendPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode campaign task: %w", err)
	}
	if p.CampaignID == "" {
		return p, fmt.Errorf("decode campaign task: missing campaign id")
	}
	return p, nil
}
