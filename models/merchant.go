package models

import (
	"time"

	"localcity/services/hours"
)

// Address is a merchant's street location.
type Address struct {
	Street     string  `bson:"street" json:"street"`
	City       string  `bson:"city" json:"city" validate:"required"`
	State      string  `bson:"state" json:"state" validate:"omitempty,len=2"`
	PostalCode string  `bson:"postalCode" json:"postalCode"`
	Lat        float64 `bson:"lat" json:"lat" validate:"omitempty,latitude"`
	Lng        float64 `bson:"lng" json:"lng" validate:"omitempty,longitude"`
}

// GalleryImage is one uploaded picture. Position drives drag-and-drop order.
type GalleryImage struct {
	ID       string `bson:"id" json:"id"`
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"` // Cloudinary public ID, needed for deletion.
	Caption  string `bson:"caption" json:"caption"`
	Position int    `bson:"position" json:"position"`
}

// PageSection is a content block of the merchant page (text, offer, menu, faq).
type PageSection struct {
	ID    string `bson:"id" json:"id" validate:"required"`
	Kind  string `bson:"kind" json:"kind" validate:"required,oneof=text offer menu faq"`
	Title string `bson:"title" json:"title" validate:"max=120"`
	Body  string `bson:"body" json:"body" validate:"max=5000"`
}

// Page designs the merchant page and campaign layouts can be rendered in.
const (
	DesignClassic = "classic"
	DesignModern  = "modern"
	DesignBold    = "bold"
	DesignMinimal = "minimal"
)

// MerchantPage is the part of a merchant the visual editor changes.
type MerchantPage struct {
	Name        string         `bson:"name" json:"name" validate:"required,max=120"`
	Tagline     string         `bson:"tagline" json:"tagline" validate:"max=160"`
	Description string         `bson:"description" json:"description" validate:"max=5000"`
	Category    string         `bson:"category" json:"category" validate:"required"`
	Phone       string         `bson:"phone" json:"phone" validate:"omitempty,max=32"`
	Email       string         `bson:"email" json:"email" validate:"omitempty,email"`
	Website     string         `bson:"website" json:"website" validate:"omitempty,url"`
	Address     Address        `bson:"address" json:"address"`
	Hours       hours.Week     `bson:"hours" json:"hours"`
	Sections    []PageSection  `bson:"sections" json:"sections" validate:"dive"`
	Design      string         `bson:"design" json:"design" validate:"omitempty,oneof=classic modern bold minimal"`
	LogoURL     string         `bson:"logoUrl" json:"logoUrl"`
	CoverURL    string         `bson:"coverUrl" json:"coverUrl"`
	Gallery     []GalleryImage `bson:"gallery" json:"gallery"`
}

// Merchant is a business listed on the marketplace.
type Merchant struct {
	ID           string `bson:"id" json:"id"`
	Slug         string `bson:"slug" json:"slug"`
	MerchantPage `bson:",inline"`
	LogoID       string    `bson:"logoId" json:"-"`
	CoverID      string    `bson:"coverId" json:"-"`
	OwnerID      string    `bson:"ownerId" json:"ownerId,omitempty"`
	Published    bool      `bson:"published" json:"published"`
	Rating       float64   `bson:"rating" json:"rating"`
	ReviewCount  int       `bson:"reviewCount" json:"reviewCount"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// MerchantFilter narrows merchant listings.
type MerchantFilter struct {
	Query     string `form:"q"`
	Category  string `form:"category"`
	Published *bool  `form:"published"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}
