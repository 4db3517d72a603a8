package handlers

import (
	userRepo "localcity/database/repository/user"
)

// HandlerBundle aggregates the admin API handlers for route registration.
type HandlerBundle struct {
	// UserRepo backs the admin auth middleware.
	UserRepo userRepo.UserRepository

	Auth      *AuthHandler
	Merchants *MerchantHandler
	Hours     *HoursHandler
	Campaigns *CampaignHandler
	Receipts  *ReceiptHandler
	Reviews   *ReviewHandler
	Users     *UserHandler
	Editor    *EditorHandler
}
