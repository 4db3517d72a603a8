package tasks

import (
	"testing"
	"time"

	"localcity/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestCampaignSendTask(t *testing.T) {
	at := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	task, opts, err := NewCampaignSendTask(models.CampaignSendPayload{CampaignID: "c1", ScheduledAt: at}, at)
	require.NoError(t, err)
	require.Equal(t, TypeCampaignSend, task.Type())
	require.Len(t, opts, 3)

	p, err := ParseCampaignSendTask(task)
	require.NoError(t, err)
	require.Equal(t, "c1", p.CampaignID)
	require.True(t, at.Equal(p.ScheduledAt))
}

func TestParseCampaignSendTaskRejectsEmptyID(t *testing.T) {
	_, err := ParseCampaignSendTask(asynq.NewTask(TypeCampaignSend, []byte(`{}`)))
	require.Error(t, err)

	_, err = ParseCampaignSendTask(asynq.NewTask(TypeCampaignSend, []byte(`not json`)))
	require.Error(t, err)
}
