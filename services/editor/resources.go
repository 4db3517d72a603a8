package editor

import (
	"localcity/models"
	"localcity/services/campaign"
	"localcity/services/merchant"
)

const (
	ResourceMerchant = "merchant"
	ResourceCampaign = "campaign"
)

// RegisterMerchant lets admins edit merchant pages with auto-save.
func RegisterMerchant(m *Manager, svc merchant.MerchantService) {
	Register(m, Binding[models.MerchantPage]{
		Resource:    ResourceMerchant,
		DefaultMode: ModeAuto,
		Load:        svc.LoadPage,
		Save:        svc.SavePage,
	})
}

// RegisterCampaign lets admins compose campaign drafts with explicit saves.
func RegisterCampaign(m *Manager, svc campaign.CampaignService) {
	Register(m, Binding[models.CampaignDraft]{
		Resource:    ResourceCampaign,
		DefaultMode: ModeManual,
		Load:        svc.LoadDraft,
		Save:        svc.SaveDraft,
	})
}
