package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Contact struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	WorkspaceID string  `gorm:"type:text;not null;index"`
	FirstName   string  `gorm:"type:text;not null;default:''"`
	LastName    string  `gorm:"type:text;not null;default:''"`
	Email       *string `gorm:"type:text"`
	Phone       *string `gorm:"type:text"`
	Title       *string `gorm:"type:text"`
	BusinessID  *string `gorm:"type:uuid"`
	Address     *string `gorm:"type:text"`
	City        *string `gorm:"type:text"`
	State       *string `gorm:"type:text"`
	ZipCode     *string `gorm:"type:text"`
	ContactType *string `gorm:"type:text"`
	Notes       *string `gorm:"type:text"`
	CreatedBy   string  `gorm:"type:text;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Contact) TableName() string {
	return "contacts"
}

type Business struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	WorkspaceID   string  `gorm:"type:text;not null;index"`
	Name          string  `gorm:"type:text;not null"`
	Email         *string `gorm:"type:text"`
	Phone         *string `gorm:"type:text"`
	Website       *string `gorm:"type:text"`
	Industry      *string `gorm:"type:text"`
	Address       *string `gorm:"type:text"`
	City          *string `gorm:"type:text"`
	State         *string `gorm:"type:text"`
	ZipCode       *string `gorm:"type:text"`
	EmployeeCount *int64
	Notes         *string `gorm:"type:text"`
	CreatedBy     string  `gorm:"type:text;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Business) TableName() string {
	return "businesses"
}

type Donation struct {
	ID            string          `gorm:"type:uuid;primaryKey"`
	WorkspaceID   string          `gorm:"type:text;not null;index"`
	ContactID     *string         `gorm:"type:uuid"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	DonatedAt     time.Time       `gorm:"not null"`
	Method        *string         `gorm:"type:text"`
	Campaign      *string         `gorm:"type:text"`
	ReceiptNumber *string         `gorm:"type:text"`
	Notes         *string         `gorm:"type:text"`
	CreatedBy     string          `gorm:"type:text;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Donation) TableName() string {
	return "donations"
}

type WorkspaceMember struct {
	WorkspaceID string `gorm:"type:text;primaryKey"`
	UserID      string `gorm:"type:text;primaryKey"`
	Role        string `gorm:"type:text;not null;default:'member'"`
	CreatedAt   time.Time
}

func (WorkspaceMember) TableName() string {
	return "workspace_members"
}
