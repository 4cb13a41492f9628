package models

// Credential is a row of the shared login table. Password holds whatever the
// configured password scheme expects: the plain value or a bcrypt hash.
type Credential struct {
	Base
	Email    string `json:"email" gorm:"uniqueIndex;size:191;not null"`
	Password string `json:"-" gorm:"not null"`
	Name     string `json:"name"`
}

func (Credential) TableName() string { return "users" }
