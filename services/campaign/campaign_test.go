package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"localcity/database"
	userRepo "localcity/database/repository/user"
	"localcity/models"
	"localcity/services/mail"
	"localcity/services/tasks"
	"localcity/utils"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type memCampaigns struct {
	mu   sync.Mutex
	byID map[string]models.Campaign
}

func (r *memCampaigns) Create(ctx context.Context, c *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = *c
	return nil
}

func (r *memCampaigns) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s: %w", id, database.ErrNotFound)
	}
	return &c, nil
}

func (r *memCampaigns) List(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]models.Campaign, int64, error) {
	return nil, 0, nil
}

func (r *memCampaigns) UpdateDraft(ctx context.Context, id string, draft models.CampaignDraft) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || !c.Editable() {
		return nil, database.ErrNotFound
	}
	c.CampaignDraft = draft
	r.byID[id] = c
	return &c, nil
}

func (r *memCampaigns) Transition(ctx context.Context, id string, from []models.CampaignStatus, fields bson.M) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	allowed := false
	for _, st := range from {
		allowed = allowed || c.Status == st
	}
	if !allowed {
		return nil, database.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			c.Status = v.(models.CampaignStatus)
		case "scheduledAt":
			if v == nil {
				c.ScheduledAt = nil
			} else {
				at := v.(time.Time)
				c.ScheduledAt = &at
			}
		case "sentAt":
			at := v.(time.Time)
			c.SentAt = &at
		case "stats":
			c.Stats = v.(models.CampaignStats)
		default:
			panic("unexpected field " + k)
		}
	}
	r.byID[id] = c
	return &c, nil
}

func (r *memCampaigns) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

type audience struct {
	userRepo.UserRepository
	byRole map[models.Role][]userRepo.Recipient
}

func (a audience) Recipients(ctx context.Context, roles []models.Role) ([]userRepo.Recipient, error) {
	var out []userRepo.Recipient
	for _, r := range roles {
		out = append(out, a.byRole[r]...)
	}
	return out, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail map[string]bool
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type queue struct {
	tasks []*asynq.Task
}

func (q *queue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(q.tasks))}, nil
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newCampaignService(t *testing.T) (*DefaultCampaignService, *memCampaigns, *recordingMailer, *queue) {
	t.Helper()
	repo := &memCampaigns{byID: map[string]models.Campaign{}}
	users := audience{byRole: map[models.Role][]userRepo.Recipient{
		models.RoleCustomer: {{Email: "ann@example.com"}, {Email: "bob@example.com"}},
		models.RoleMerchant: {{Email: "shop@example.com"}, {Email: "ANN@example.com"}},
	}}
	mailer := &recordingMailer{fail: map[string]bool{}}
	q := &queue{}
	svc, err := NewDefaultCampaignService(repo, users, mailer, q)
	require.NoError(t, err)
	svc.Now = func() time.Time { return now }
	return svc, repo, mailer, q
}

func draft() models.CampaignDraft {
	return models.CampaignDraft{
		Name:     "Spring market",
		Subject:  "Spring is here",
		FromName: "Local City Places",
		Body:     "# Hello neighbors\n\nVisit [our market](https://market.test) this weekend.\n\n- fresh bread\n- local honey",
		CTALabel: "See vendors",
		CTAURL:   "https://market.test/vendors",
	}
}

func TestRender(t *testing.T) {
	d := draft()
	d.Design = models.DesignBold
	d.PreviewText = "Fresh finds"

	r, err := Render(d)
	require.NoError(t, err)
	assert.Equal(t, "Spring is here", r.Subject)
	assert.Contains(t, r.HTML, "<h1")
	assert.Contains(t, r.HTML, "Hello neighbors")
	assert.Contains(t, r.HTML, "#c2410c")
	assert.Contains(t, r.HTML, "Fresh finds")
	assert.Contains(t, r.HTML, `href="https://market.test/vendors"`)

	assert.Contains(t, r.Text, "Hello neighbors")
	assert.Contains(t, r.Text, "Visit our market (https://market.test) this weekend.")
	assert.Contains(t, r.Text, "- fresh bread\n\n- local honey")
	assert.True(t, strings.HasSuffix(r.Text, "See vendors: https://market.test/vendors"))
}

func TestRenderDropsRawHTML(t *testing.T) {
	d := draft()
	d.Body = "Hi <script>alert(1)</script> there"

	r, err := Render(d)
	require.NoError(t, err)
	assert.NotContains(t, r.HTML, "<script>")
}

func TestCreateCampaignDefaults(t *testing.T) {
	svc, _, _, _ := newCampaignService(t)

	c, err := svc.CreateCampaign(context.Background(), draft(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, c.Status)
	assert.Equal(t, models.AudienceAll, c.Audience)
	assert.Equal(t, models.DesignClassic, c.Design)

	bad := draft()
	bad.Subject = ""
	_, err = svc.CreateCampaign(context.Background(), bad, "admin-1")
	require.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestSendReportsPartialFailure(t *testing.T) {
	svc, repo, mailer, _ := newCampaignService(t)
	ctx := context.Background()
	c, err := svc.CreateCampaign(ctx, draft(), "admin-1")
	require.NoError(t, err)
	mailer.fail["bob@example.com"] = true

	res, err := svc.Send(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Recipients, "duplicate addresses are collapsed")
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bob@example.com")
	assert.Equal(t, "Sent to 2 of 3 recipients, 1 failed", res.Message)

	stored := repo.byID[c.ID]
	assert.Equal(t, models.CampaignStatusSent, stored.Status)
	assert.Equal(t, models.CampaignStats{Recipients: 3, Sent: 2, Failed: 1}, stored.Stats)
	require.NotNil(t, stored.SentAt)
	for _, m := range mailer.sent {
		assert.Equal(t, "campaign-"+c.ID, m.Tag)
	}

	_, err = svc.Send(ctx, c.ID)
	require.ErrorIs(t, err, utils.ErrConflict, "a sent campaign cannot be sent again")
}

func TestSendMarksFailedWhenNothingDelivered(t *testing.T) {
	svc, repo, mailer, _ := newCampaignService(t)
	ctx := context.Background()
	d := draft()
	d.Audience = models.AudienceCustom
	d.Recipients = []string{"x@example.com"}
	c, err := svc.CreateCampaign(ctx, d, "admin-1")
	require.NoError(t, err)
	mailer.fail["x@example.com"] = true

	res, err := svc.Send(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, models.CampaignStatusFailed, repo.byID[c.ID].Status)

	// Failed campaigns can be retried.
	delete(mailer.fail, "x@example.com")
	res, err = svc.Send(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, models.CampaignStatusSent, repo.byID[c.ID].Status)
}

func TestSendTest(t *testing.T) {
	svc, repo, mailer, _ := newCampaignService(t)
	ctx := context.Background()
	c, err := svc.CreateCampaign(ctx, draft(), "admin-1")
	require.NoError(t, err)

	_, err = svc.SendTest(ctx, c.ID, []string{"not-an-email"})
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	res, err := svc.SendTest(ctx, c.ID, []string{"me@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "[Test] Spring is here", mailer.sent[0].Subject)
	assert.Equal(t, models.CampaignStatusDraft, repo.byID[c.ID].Status)
}

func TestScheduleAndRunJob(t *testing.T) {
	svc, repo, mailer, q := newCampaignService(t)
	ctx := context.Background()
	c, err := svc.CreateCampaign(ctx, draft(), "admin-1")
	require.NoError(t, err)

	_, err = svc.Schedule(ctx, c.ID, now.Add(-time.Minute))
	require.ErrorIs(t, err, utils.ErrInvalidInput)

	first := now.Add(time.Hour)
	_, err = svc.Schedule(ctx, c.ID, first)
	require.NoError(t, err)
	second := now.Add(2 * time.Hour)
	scheduled, err := svc.Schedule(ctx, c.ID, second)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, scheduled.Status)
	require.Len(t, q.tasks, 2)

	stale, err := tasks.ParseCampaignSendTask(q.tasks[0])
	require.NoError(t, err)
	require.NoError(t, svc.SendScheduled(ctx, stale))
	assert.Empty(t, mailer.sent, "superseded job must not send")

	current, err := tasks.ParseCampaignSendTask(q.tasks[1])
	require.NoError(t, err)
	require.NoError(t, svc.SendScheduled(ctx, current))
	assert.Len(t, mailer.sent, 3)
	assert.Equal(t, models.CampaignStatusSent, repo.byID[c.ID].Status)

	// A duplicate delivery of the job is a no-op.
	require.NoError(t, svc.SendScheduled(ctx, current))
	assert.Len(t, mailer.sent, 3)
}

func TestUnschedule(t *testing.T) {
	svc, repo, _, q := newCampaignService(t)
	ctx := context.Background()
	c, err := svc.CreateCampaign(ctx, draft(), "admin-1")
	require.NoError(t, err)

	_, err = svc.Unschedule(ctx, c.ID)
	require.ErrorIs(t, err, utils.ErrConflict)

	_, err = svc.Schedule(ctx, c.ID, now.Add(time.Hour))
	require.NoError(t, err)
	back, err := svc.Unschedule(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, back.Status)
	assert.Nil(t, back.ScheduledAt)

	p, err := tasks.ParseCampaignSendTask(q.tasks[0])
	require.NoError(t, err)
	require.NoError(t, svc.SendScheduled(ctx, p))
	assert.Equal(t, models.CampaignStatusDraft, repo.byID[c.ID].Status)

	_, err = svc.Unschedule(ctx, "missing")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestScheduleWithoutQueue(t *testing.T) {
	svc, _, _, _ := newCampaignService(t)
	svc.Queue = nil

	_, err := svc.Schedule(context.Background(), "any", now.Add(time.Hour))
	require.ErrorIs(t, err, utils.ErrUnavailable)
}

func TestUpdateDraftRejectedAfterSend(t *testing.T) {
	svc, _, _, _ := newCampaignService(t)
	ctx := context.Background()
	c, err := svc.CreateCampaign(ctx, draft(), "admin-1")
	require.NoError(t, err)
	_, err = svc.Send(ctx, c.ID)
	require.NoError(t, err)

	_, err = svc.SaveDraft(ctx, c.ID, draft())
	require.ErrorIs(t, err, utils.ErrConflict)
}
