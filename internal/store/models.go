package store

import (
	"time"

	"github.com/google/uuid"
)

type Engagement struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	PeriodType   string    `json:"periodType"`
	PeriodStart  time.Time `json:"periodStart"`
	PeriodEnd    time.Time `json:"periodEnd"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ReportNote struct {
	ID           uuid.UUID
	EngagementID uuid.UUID
	SectionKey   string
	Content      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ImportRun struct {
	ID           uuid.UUID
	EngagementID uuid.UUID
	Kind         string
	Mode         string
	Filename     string
	FileSha256   string
	CustomerName *string
	SummaryJson  []byte
	CreatedAt    time.Time
}

type AuditLog struct {
	ID           int64
	EngagementID *uuid.UUID
	Action       string
	EntityType   string
	EntityID     *uuid.UUID
	RequestID    *string
	Metadata     []byte
	CreatedAt    time.Time
}
