package models

import "time"

type ReceiptStatus string

const (
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptApproved ReceiptStatus = "approved"
	ReceiptRejected ReceiptStatus = "rejected"
)

// Receipt is a purchase proof uploaded by a customer for rewards.
type Receipt struct {
	ID              string        `bson:"id" json:"id"`
	UserID          string        `bson:"userId" json:"userId"`
	MerchantID      string        `bson:"merchantId" json:"merchantId"`
	MerchantName    string        `bson:"merchantName" json:"merchantName"`
	ImageURL        string        `bson:"imageUrl" json:"imageUrl"`
	Amount          Amount        `bson:"amount" json:"amount"`
	PurchasedAt     time.Time     `bson:"purchasedAt" json:"purchasedAt"`
	Status          ReceiptStatus `bson:"status" json:"status"`
	RejectionReason string        `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	ReviewedBy      string        `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time    `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
}

// ReceiptFilter narrows receipt listings and exports.
type ReceiptFilter struct {
	Status     ReceiptStatus `form:"status"`
	MerchantID string        `form:"merchantId"`
	UserID     string        `form:"userId"`
	From       *time.Time    `form:"from" time_format:"2006-01-02"`
	To         *time.Time    `form:"to" time_format:"2006-01-02"`
	Limit      int           `form:"limit"`
	Offset     int           `form:"offset"`
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewHidden   ReviewStatus = "hidden"
)

// Review is a customer's rating of a merchant.
type Review struct {
	ID          string       `bson:"id" json:"id"`
	MerchantID  string       `bson:"merchantId" json:"merchantId"`
	UserID      string       `bson:"userId" json:"userId"`
	AuthorName  string       `bson:"authorName" json:"authorName"`
	Rating      int          `bson:"rating" json:"rating"` // 1 to 5.
	Body        string       `bson:"body" json:"body"`
	Status      ReviewStatus `bson:"status" json:"status"`
	Flagged     bool         `bson:"flagged" json:"flagged"`
	ModeratedBy string       `bson:"moderatedBy,omitempty" json:"moderatedBy,omitempty"`
	ModeratedAt *time.Time   `bson:"moderatedAt,omitempty" json:"moderatedAt,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
}

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	Status     ReviewStatus `form:"status"`
	MerchantID string       `form:"merchantId"`
	Flagged    *bool        `form:"flagged"`
	Limit      int          `form:"limit"`
	Offset     int          `form:"offset"`
}

// RatingSummary is the aggregate of approved reviews for one merchant.
type RatingSummary struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}
