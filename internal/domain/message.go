package domain

import "time"

// Message type enum values.
const (
	MsgTypeText     = "text"
	MsgTypeImage    = "image"
	MsgTypeVideo    = "video"
	MsgTypeDocument = "document"
)

// Message is the canonical record every inbound protocol message variant is
// mapped into. MessageID comes from the protocol and is indexed but not
// unique. GroupID/GroupName are both set or both null. MediaURL exists in the
// schema but is never populated; capture is metadata-only.
type Message struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	MessageID    string    `json:"message_id" gorm:"index"`
	Content      *string   `json:"content"`
	SenderNumber string    `json:"sender_number" gorm:"index"`
	SenderName   *string   `json:"sender_name"`
	ContactID    int64     `json:"contact_id,string" gorm:"index"`
	Contact      *Contact  `json:"contacts" gorm:"foreignKey:ContactID"`
	GroupName    *string   `json:"group_name"`
	GroupID      *string   `json:"group_id" gorm:"index"`
	IsGroup      bool      `json:"is_group"`
	MessageType  string    `json:"message_type"`
	MediaURL     *string   `json:"media_url"`
	Timestamp    time.Time `json:"timestamp" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
