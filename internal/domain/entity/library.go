package entity

import (
	"time"

	"github.com/google/uuid"
)

// LibraryItem - файл в контент-библиотеке бренда.
type LibraryItem struct {
	ID             uuid.UUID
	BrandProfileID uuid.UUID
	BookingID      *uuid.UUID
	FileName       string
	MimeType       string
	SizeBytes      int64
	StoragePath    string
	CreatedAt      time.Time
}
