package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the authenticated actor operating enrollments. Accounts are
// provisioned by the parent sales-navigator app; this service only
// reads them for auth and CRM configuration.
type User struct {
	gorm.Model
	Email string `gorm:"not null;uniqueIndex" json:"email"`
	Name  string `json:"name"`

	// Account status
	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	// CRM integration settings (used for call deep links and activity sync)
	CRMDomain      string `json:"crm_domain"`
	CRMSyncEnabled bool   `gorm:"default:false" json:"crm_sync_enabled"`

	LastLoginAt *time.Time `json:"last_login_at"`
}
