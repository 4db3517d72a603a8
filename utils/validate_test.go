package utils

import (
	"errors"
	"testing"

	"localcity/models"

	"github.com/stretchr/testify/require"
)

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(models.MerchantPage{Email: "nope"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidInput))
	require.Contains(t, err.Error(), "name is required")
	require.Contains(t, err.Error(), "category is required")
	require.Contains(t, err.Error(), "email must be a valid email address")
}

func TestValidateStructCampaignAudience(t *testing.T) {
	draft := models.CampaignDraft{
		Name:     "Spring",
		Subject:  "Hello",
		Body:     "# Hi",
		Audience: models.AudienceCustom,
	}
	err := ValidateStruct(draft)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recipients is required")

	draft.Recipients = []string{"a@example.com"}
	require.NoError(t, ValidateStruct(draft))
}
