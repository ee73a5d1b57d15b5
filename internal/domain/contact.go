package domain

import "time"

// Contact is one row per distinct normalized WhatsApp number. Created on the
// first message from a number, updated on every subsequent one, never deleted.
type Contact struct {
	ID             int64     `json:"id,string" gorm:"primaryKey"`
	WhatsappNumber string    `json:"whatsapp_number" gorm:"uniqueIndex"`
	Name           *string   `json:"name"`
	WaLink         string    `json:"wa_link"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
