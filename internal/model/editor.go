package model

import "time"

// Editor is an account allowed to manage content.
type Editor struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}

// EditorDTO is the public view of an Editor; it never carries the password hash.
type EditorDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ToDTO strips credentials from the editor.
func (e *Editor) ToDTO() EditorDTO {
	return EditorDTO{
		ID:        e.ID,
		Email:     e.Email,
		FirstName: e.FirstName,
		LastName:  e.LastName,
	}
}
