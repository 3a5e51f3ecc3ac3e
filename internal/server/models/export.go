package models

import "time"

// Export describes a directory snapshot written to object storage.
type Export struct {
	// StorageKey is the object key of the XML document.
	StorageKey string `json:"storage_key"`
	// URL is a temporary presigned GET URL for the document.
	URL string `json:"url"`
	// Users is the number of records in the snapshot.
	Users int `json:"users"`
	// Bytes is the document size.
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}
