package campaign

import (
	"context"
	"fmt"
	"time"

	campaignRepo "localcity/database/repository/campaign"
	userRepo "localcity/database/repository/user"
	"localcity/models"
	"localcity/services/mail"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules background jobs; *asynq.Client satisfies it.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SendResult summarizes one delivery run. Partial failure is reported here,
// not as an error.
type SendResult struct {
	CampaignID string   `json:"campaignId"`
	Recipients int      `json:"recipients"`
	Sent       int      `json:"sent"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
	Message    string   `json:"message"`
}

type CampaignService interface {
	ListCampaigns(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]models.Campaign, int64, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	CreateCampaign(ctx context.Context, draft models.CampaignDraft, adminID string) (*models.Campaign, error)
	UpdateDraft(ctx context.Context, id string, draft models.CampaignDraft) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error

	// Editor binding.
	LoadDraft(ctx context.Context, id string) (models.CampaignDraft, error)
	SaveDraft(ctx context.Context, id string, draft models.CampaignDraft) (models.CampaignDraft, error)

	Preview(ctx context.Context, id string) (Rendered, error)
	SendTest(ctx context.Context, id string, to []string) (SendResult, error)
	Send(ctx context.Context, id string) (SendResult, error)
	Schedule(ctx context.Context, id string, at time.Time) (*models.Campaign, error)
	Unschedule(ctx context.Context, id string) (*models.Campaign, error)
	// SendScheduled runs a queued campaign:send job.
	SendScheduled(ctx context.Context, payload models.CampaignSendPayload) error
}

// DefaultCampaignService is the production implementation.
type DefaultCampaignService struct {
	Repo   campaignRepo.CampaignRepository
	Users  userRepo.UserRepository
	Mailer mail.Mailer
	// Queue may be nil, in which case scheduling is unavailable.
	Queue Enqueuer
	// Concurrency bounds parallel deliveries during Send.
	Concurrency int
	Now         func() time.Time
}

func NewDefaultCampaignService(
	repo campaignRepo.CampaignRepository,
	users userRepo.UserRepository,
	mailer mail.Mailer,
	queue Enqueuer,
) (*DefaultCampaignService, error) {
	if repo == nil || users == nil || mailer == nil {
		return nil, fmt.Errorf("campaign service initialization error: one or more dependencies are nil")
	}
	return &DefaultCampaignService{
		Repo:        repo,
		Users:       users,
		Mailer:      mailer,
		Queue:       queue,
		Concurrency: 8,
		Now:         time.Now,
	}, nil
}
