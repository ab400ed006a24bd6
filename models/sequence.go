package models

import "gorm.io/gorm"

// Outreach channels a sequence step can use
const (
	ChannelEmail           = "email"
	ChannelCall            = "call"
	ChannelLinkedInConnect = "linkedin_connect"
	ChannelLinkedInInMail  = "linkedin_inmail"
	ChannelWhatsApp        = "whatsapp"
)

// OutreachSequence represents a reusable multi-channel outreach plan.
// Steps are immutable once enrollments reference the sequence and are
// addressed by their 0-based index.
type OutreachSequence struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	// Ordered steps stored as JSON
	Steps []SequenceStep `json:"steps" gorm:"type:jsonb;serializer:json"`

	// Relations
	Enrollments []SequenceEnrollment `gorm:"foreignKey:SequenceID" json:"enrollments,omitempty"`
}

// SequenceStep is one planned touch-point within a sequence
type SequenceStep struct {
	Channel   string `json:"channel"` // email, call, linkedin_connect, linkedin_inmail, whatsapp
	Tone      string `json:"tone,omitempty"`
	Template  string `json:"template,omitempty"`
	DelayDays int    `json:"delay_days"`
	Notes     string `json:"notes,omitempty"`
}
