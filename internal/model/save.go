package model

import "time"

// SaveRecord is one encoded local snapshot as kept by the local save store.
type SaveRecord struct {
	Key      string    `json:"key"`
	Codec    string    `json:"codec"`
	Checksum string    `json:"checksum"`
	Payload  []byte    `json:"payload"`
	SavedAt  time.Time `json:"saved_at"`
}
