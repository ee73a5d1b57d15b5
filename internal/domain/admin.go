package domain

import "time"

// Admin is an operator account for the admin panel. Created via registration,
// never updated or deleted by this system.
type Admin struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Admin) TableName() string {
	return "admins"
}
