package domain

import "time"

// Session status enum values.
const (
	SessionConnected    = "connected"
	SessionConnecting   = "connecting"
	SessionDisconnected = "disconnected"
)

// SessionRecordID is the fixed primary key of the singleton session row.
// Upserts target this key directly so concurrent writers can never create a
// second row.
const SessionRecordID int64 = 1

// Session mirrors the lifecycle of the single WhatsApp device session. The
// credential blob itself is owned by the whatsmeow sqlstore; this row keeps
// the paired JID reference, phone number and connection status.
type Session struct {
	ID              int64      `json:"id,string" gorm:"primaryKey"`
	Jid             string     `json:"jid"`
	PhoneNumber     *string    `json:"phone_number"`
	Status          string     `json:"status"`
	LastConnectedAt *time.Time `json:"last_connected_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Session) TableName() string {
	return "whatsapp_sessions"
}
