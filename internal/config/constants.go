package config

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./shelf.db"

	// DefaultUploadsDir is where profile pictures are stored
	DefaultUploadsDir = "./uploads"
)
