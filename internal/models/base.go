package models

// Base is the auto-increment integer identity shared by every table.
type Base struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`
}
