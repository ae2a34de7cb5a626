package entities

import "time"

// Author owns zero or more books. Listed by name.
type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:255;not null" json:"name"`
	Books     []Book    `gorm:"foreignKey:AuthorID" json:"books"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Book always belongs to exactly one Author. Deleting the author removes its books.
type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"index;size:255;not null" json:"title"`
	PublicationYear int       `gorm:"index" json:"publication_year"`
	AuthorID        uint      `gorm:"index;not null" json:"author"`
	Author          *Author   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Libraries       []Library `gorm:"many2many:library_books;" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
