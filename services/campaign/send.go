package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"localcity/database"
	"localcity/models"
	"localcity/services/mail"
	"localcity/services/tasks"
	"localcity/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxReportedErrors caps the per-recipient errors returned in a SendResult.
const maxReportedErrors = 10

// recipients resolves the audience of a draft to email addresses.
func (s *DefaultCampaignService) recipients(ctx context.Context, d models.CampaignDraft) ([]string, error) {
	var roles []models.Role
	switch d.Audience {
	case models.AudienceCustom:
		return dedupeEmails(d.Recipients), nil
	case models.AudienceCustomers:
		roles = []models.Role{models.RoleCustomer}
	case models.AudienceMerchants:
		roles = []models.Role{models.RoleMerchant}
	case models.AudienceAll, "":
		roles = []models.Role{models.RoleCustomer, models.RoleMerchant}
	default:
		return nil, fmt.Errorf("%w: unknown audience %q", utils.ErrInvalidInput, d.Audience)
	}
	users, err := s.Users.Recipients(ctx, roles)
	if err != nil {
		return nil, fmt.Errorf("resolve audience %s: %w", d.Audience, err)
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	return dedupeEmails(emails), nil
}

// deliver mails r to every address with bounded parallelism.
func (s *DefaultCampaignService) deliver(ctx context.Context, campaignID, fromName string, r Rendered, to []string) SendResult {
	res := SendResult{CampaignID: campaignID, Recipients: len(to)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, addr := range to {
		addr := addr
		g.Go(func() error {
			err := s.Mailer.Send(gctx, mail.Message{
				To:       addr,
				FromName: fromName,
				Subject:  r.Subject,
				HTML:     r.HTML,
				Text:     r.Text,
				Tag:      "campaign-" + campaignID,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				if len(res.Errors) < maxReportedErrors {
					res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", addr, err))
				}
				zap.L().Warn("campaign delivery failed", zap.String("campaignID", campaignID), zap.String("to", addr), zap.Error(err))
				return nil
			}
			res.Sent++
			return nil
		})
	}
	_ = g.Wait()

	switch {
	case res.Recipients == 0:
		res.Message = "No recipients matched the audience"
	case res.Failed == 0:
		res.Message = fmt.Sprintf("Sent to %d recipients", res.Sent)
	default:
		res.Message = fmt.Sprintf("Sent to %d of %d recipients, %d failed", res.Sent, res.Recipients, res.Failed)
	}
	return res
}

// SendTest mails a preview to the given addresses without touching the campaign status.
func (s *DefaultCampaignService) SendTest(ctx context.Context, id string, to []string) (SendResult, error) {
	to = dedupeEmails(to)
	if len(to) == 0 {
		return SendResult{}, fmt.Errorf("%w: at least one test recipient is required", utils.ErrInvalidInput)
	}
	for _, addr := range to {
		if err := utils.Validator().Var(addr, "email"); err != nil {
			return SendResult{}, fmt.Errorf("%w: %q is not a valid email address", utils.ErrInvalidInput, addr)
		}
	}
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return SendResult{}, err
	}
	r, err := Render(c.CampaignDraft)
	if err != nil {
		return SendResult{}, err
	}
	r.Subject = "[Test] " + r.Subject
	return s.deliver(ctx, c.ID, c.FromName, r, to), nil
}

// Send delivers the campaign to its audience now. The campaign moves through
// sending to sent, or to failed when no delivery succeeded.
func (s *DefaultCampaignService) Send(ctx context.Context, id string) (SendResult, error) {
	c, err := s.editable(ctx, id)
	if err != nil {
		return SendResult{}, err
	}
	draft, err := prepareDraft(c.CampaignDraft)
	if err != nil {
		return SendResult{}, err
	}
	r, err := Render(draft)
	if err != nil {
		return SendResult{}, err
	}

	c, err = s.Repo.Transition(ctx, id, []models.CampaignStatus{
		models.CampaignStatusDraft, models.CampaignStatusScheduled, models.CampaignStatusFailed,
	}, bson.M{"status": models.CampaignStatusSending})
	if errors.Is(err, database.ErrNotFound) {
		return SendResult{}, fmt.Errorf("%w: campaign %s is already being sent", utils.ErrConflict, id)
	}
	if err != nil {
		return SendResult{}, err
	}

	res, sendErr := s.sendNow(ctx, c, r)
	if sendErr != nil {
		res.Message = "Audience could not be resolved"
	}

	status := models.CampaignStatusSent
	if sendErr != nil || (res.Recipients > 0 && res.Sent == 0) {
		status = models.CampaignStatusFailed
	}
	now := s.Now().UTC()
	_, err = s.Repo.Transition(context.WithoutCancel(ctx), id, []models.CampaignStatus{models.CampaignStatusSending}, bson.M{
		"status": status,
		"sentAt": now,
		"stats": models.CampaignStats{
			Recipients: res.Recipients,
			Sent:       res.Sent,
			Failed:     res.Failed,
		},
	})
	if err != nil {
		zap.L().Error("failed to record campaign result", zap.String("campaignID", id), zap.Error(err))
	}
	if sendErr != nil {
		return res, sendErr
	}
	zap.L().Info("campaign sent",
		zap.String("campaignID", id),
		zap.Int("recipients", res.Recipients),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (s *DefaultCampaignService) sendNow(ctx context.Context, c *models.Campaign, r Rendered) (SendResult, error) {
	to, err := s.recipients(ctx, c.CampaignDraft)
	if err != nil {
		return SendResult{CampaignID: c.ID}, err
	}
	return s.deliver(ctx, c.ID, c.FromName, r, to), nil
}

// sameInstant compares times at the precision MongoDB stores.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}

// Schedule queues the campaign to be sent at at.
func (s *DefaultCampaignService) Schedule(ctx context.Context, id string, at time.Time) (*models.Campaign, error) {
	if s.Queue == nil {
		return nil, fmt.Errorf("%w: job queue is not configured", utils.ErrUnavailable)
	}
	at = at.UTC().Truncate(time.Millisecond)
	if !at.After(s.Now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", utils.ErrInvalidInput)
	}
	c, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := prepareDraft(c.CampaignDraft); err != nil {
		return nil, err
	}

	task, opts, err := tasks.NewCampaignSendTask(models.CampaignSendPayload{CampaignID: id, ScheduledAt: at}, at)
	if err != nil {
		return nil, err
	}
	info, err := s.Queue.Enqueue(task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue campaign %s: %w", id, err)
	}

	// A superseded job finds a different scheduledAt and does nothing.
	c, err = s.Repo.Transition(ctx, id, []models.CampaignStatus{
		models.CampaignStatusDraft, models.CampaignStatusScheduled, models.CampaignStatusFailed,
	}, bson.M{"status": models.CampaignStatusScheduled, "scheduledAt": at})
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: campaign %s is no longer editable", utils.ErrConflict, id)
	}
	if err != nil {
		return nil, err
	}
	zap.L().Info("campaign scheduled", zap.String("campaignID", id), zap.Time("at", at), zap.String("taskID", info.ID))
	return c, nil
}

// Unschedule returns a scheduled campaign to draft.
func (s *DefaultCampaignService) Unschedule(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.Repo.Transition(ctx, id, []models.CampaignStatus{models.CampaignStatusScheduled},
		bson.M{"status": models.CampaignStatusDraft, "scheduledAt": nil})
	if errors.Is(err, database.ErrNotFound) {
		if _, gerr := s.Repo.GetByID(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: campaign %s is not scheduled", utils.ErrConflict, id)
	}
	return c, err
}

func (s *DefaultCampaignService) SendScheduled(ctx context.Context, payload models.CampaignSendPayload) error {
	c, err := s.Repo.GetByID(ctx, payload.CampaignID)
	if errors.Is(err, database.ErrNotFound) {
		zap.L().Info("scheduled campaign no longer exists", zap.String("campaignID", payload.CampaignID))
		return nil
	}
	if err != nil {
		return err
	}
	if c.Status != models.CampaignStatusScheduled || c.ScheduledAt == nil || !sameInstant(*c.ScheduledAt, payload.ScheduledAt) {
		zap.L().Info("skipping stale campaign job",
			zap.String("campaignID", c.ID),
			zap.String("status", string(c.Status)))
		return nil
	}
	_, err = s.Send(ctx, c.ID)
	if errors.Is(err, utils.ErrConflict) {
		return nil
	}
	return err
}
