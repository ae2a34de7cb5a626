package entities

import "time"

type Library struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Books     []Book     `gorm:"many2many:library_books;" json:"books,omitempty"`
	Librarian *Librarian `gorm:"foreignKey:LibraryID" json:"librarian,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Librarian runs exactly one library; a library has at most one librarian.
type Librarian struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	LibraryID uint      `gorm:"uniqueIndex;not null" json:"library"`
	Library   *Library  `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
