package models

import "time"

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusSent      CampaignStatus = "sent"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// Audience selects who receives a campaign.
type Audience string

const (
	AudienceAll       Audience = "all"
	AudienceCustomers Audience = "customers"
	AudienceMerchants Audience = "merchants"
	AudienceCustom    Audience = "custom"
)

// CampaignDraft is the part of a campaign the composer edits.
type CampaignDraft struct {
	Name         string   `bson:"name" json:"name" validate:"required,max=120"`
	Subject      string   `bson:"subject" json:"subject" validate:"required,max=200"`
	PreviewText  string   `bson:"previewText" json:"previewText" validate:"max=200"`
	FromName     string   `bson:"fromName" json:"fromName" validate:"max=80"`
	Body         string   `bson:"body" json:"body" validate:"required"` // Markdown.
	Design       string   `bson:"design" json:"design" validate:"omitempty,oneof=classic modern bold minimal"`
	HeroImageURL string   `bson:"heroImageUrl" json:"heroImageUrl" validate:"omitempty,url"`
	CTALabel     string   `bson:"ctaLabel" json:"ctaLabel" validate:"required_with=CTAURL,max=40"`
	CTAURL       string   `bson:"ctaUrl" json:"ctaUrl" validate:"omitempty,url"`
	Audience     Audience `bson:"audience" json:"audience" validate:"required,oneof=all customers merchants custom"`
	Recipients   []string `bson:"recipients" json:"recipients" validate:"required_if=Audience custom,dive,email"`
}

// CampaignStats counts delivery results of the last send.
type CampaignStats struct {
	Recipients int `bson:"recipients" json:"recipients"`
	Sent       int `bson:"sent" json:"sent"`
	Failed     int `bson:"failed" json:"failed"`
}

// Campaign is an email blast to marketplace users.
type Campaign struct {
	ID            string `bson:"id" json:"id"`
	CampaignDraft `bson:",inline"`
	Status        CampaignStatus `bson:"status" json:"status"`
	ScheduledAt   *time.Time     `bson:"scheduledAt,omitempty" json:"scheduledAt,omitempty"`
	SentAt        *time.Time     `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	Stats         CampaignStats  `bson:"stats" json:"stats"`
	CreatedBy     string         `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Editable reports whether the campaign content may still change.
func (c *Campaign) Editable() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusScheduled || c.Status == CampaignStatusFailed
}

// CampaignSendPayload is the queued job that sends a scheduled campaign.
type CampaignSendPayload struct {
	CampaignID  string    `json:"campaignId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}
