package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"localcity/database"
	"localcity/models"
	"localcity/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// prepareDraft fills defaults and validates a draft.
func prepareDraft(d models.CampaignDraft) (models.CampaignDraft, error) {
	if d.Audience == "" {
		d.Audience = models.AudienceAll
	}
	if d.Design == "" {
		d.Design = models.DesignClassic
	}
	if d.Audience == models.AudienceCustom {
		d.Recipients = dedupeEmails(d.Recipients)
	} else {
		d.Recipients = nil
	}
	if err := utils.ValidateStruct(d); err != nil {
		return d, err
	}
	return d, nil
}

func dedupeEmails(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func (s *DefaultCampaignService) ListCampaigns(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]models.Campaign, int64, error) {
	return s.Repo.List(ctx, status, limit, offset)
}

func (s *DefaultCampaignService) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultCampaignService) CreateCampaign(ctx context.Context, draft models.CampaignDraft, adminID string) (*models.Campaign, error) {
	draft, err := prepareDraft(draft)
	if err != nil {
		return nil, err
	}
	c := &models.Campaign{
		ID:            uuid.New().String(),
		CampaignDraft: draft,
		Status:        models.CampaignStatusDraft,
		CreatedBy:     adminID,
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		return nil, err
	}
	zap.L().Info("campaign created", zap.String("campaignID", c.ID), zap.String("adminID", adminID))
	return c, nil
}

func (s *DefaultCampaignService) editable(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Editable() {
		return nil, fmt.Errorf("%w: campaign is %s", utils.ErrConflict, c.Status)
	}
	return c, nil
}

func (s *DefaultCampaignService) UpdateDraft(ctx context.Context, id string, draft models.CampaignDraft) (*models.Campaign, error) {
	if _, err := s.editable(ctx, id); err != nil {
		return nil, err
	}
	draft, err := prepareDraft(draft)
	if err != nil {
		return nil, err
	}
	c, err := s.Repo.UpdateDraft(ctx, id, draft)
	if errors.Is(err, database.ErrNotFound) {
		// Went out of an editable status between the check and the write.
		return nil, fmt.Errorf("%w: campaign %s is no longer editable", utils.ErrConflict, id)
	}
	return c, err
}

func (s *DefaultCampaignService) DeleteCampaign(ctx context.Context, id string) error {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == models.CampaignStatusSending {
		return fmt.Errorf("%w: campaign is being sent", utils.ErrConflict)
	}
	return s.Repo.Delete(ctx, id)
}

func (s *DefaultCampaignService) LoadDraft(ctx context.Context, id string) (models.CampaignDraft, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return models.CampaignDraft{}, err
	}
	return c.CampaignDraft, nil
}

func (s *DefaultCampaignService) SaveDraft(ctx context.Context, id string, draft models.CampaignDraft) (models.CampaignDraft, error) {
	c, err := s.UpdateDraft(ctx, id, draft)
	if err != nil {
		return models.CampaignDraft{}, err
	}
	return c.CampaignDraft, nil
}

func (s *DefaultCampaignService) Preview(ctx context.Context, id string) (Rendered, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Rendered{}, err
	}
	return Render(c.CampaignDraft)
}
