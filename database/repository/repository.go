package repository

import (
	campaignRepo "localcity/database/repository/campaign"
	merchantRepo "localcity/database/repository/merchant"
	receiptRepo "localcity/database/repository/receipt"
	reviewRepo "localcity/database/repository/review"
	userRepo "localcity/database/repository/user"
)

// Repositories groups the Mongo-backed repositories the services run on.
type Repositories struct {
	Merchants merchantRepo.MerchantRepository
	Campaigns campaignRepo.CampaignRepository
	Receipts  receiptRepo.ReceiptRepository
	Reviews   reviewRepo.ReviewRepository
	Users     userRepo.UserRepository
}

// NewMongoRepositories builds every repository on the global Mongo client.
// database.InitDB must have run.
func NewMongoRepositories() *Repositories {
	return &Repositories{
		Merchants: merchantRepo.NewMongoMerchantRepo(),
		Campaigns: campaignRepo.NewMongoCampaignRepo(),
		Receipts:  receiptRepo.NewMongoReceiptRepo(),
		Reviews:   reviewRepo.NewMongoReviewRepo(),
		Users:     userRepo.NewMongoUserRepo(),
	}
}
