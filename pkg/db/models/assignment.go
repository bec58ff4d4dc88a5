package models

import (
	"time"

	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/Hazher89/oppdrag-app/pkg/types"
	"github.com/google/uuid"
)

// Assignment is a unit of dispatched delivery work owned by one driver.
type Assignment struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description;not null"`

	DriverID     uuid.UUID `gorm:"type:uuid;column:driver_id;not null;index"`
	AssignedByID uuid.UUID `gorm:"type:uuid;column:assigned_by_id;not null"`
	CompanyID    string    `gorm:"column:company_id;not null;index"`

	Status   enums.AssignmentStatus   `gorm:"column:status;type:text;not null;default:'pending';index"`
	Priority enums.AssignmentPriority `gorm:"column:priority;type:text;not null;default:'medium'"`

	PickupLocation   types.GeoLocation `gorm:"embedded;embeddedPrefix:pickup_"`
	DeliveryLocation types.GeoLocation `gorm:"embedded;embeddedPrefix:delivery_"`

	ScheduledPickupTime   *time.Time `gorm:"column:scheduled_pickup_time"`
	ScheduledDeliveryTime *time.Time `gorm:"column:scheduled_delivery_time"`
	ActualPickupTime      *time.Time `gorm:"column:actual_pickup_time"`
	ActualDeliveryTime    *time.Time `gorm:"column:actual_delivery_time"`

	PDFFileName *string `gorm:"column:pdf_file_name"`
	PDFFilePath *string `gorm:"column:pdf_file_path"`
	PDFFileSize *int64  `gorm:"column:pdf_file_size"`

	Notes           *string `gorm:"column:notes"`
	DriverNotes     *string `gorm:"column:driver_notes"`
	CompletionNotes *string `gorm:"column:completion_notes"`

	EstimatedDurationMins *int     `gorm:"column:estimated_duration_mins"`
	DistanceKM            *float64 `gorm:"column:distance_km"`

	CurrentLat        *float64   `gorm:"column:current_lat"`
	CurrentLng        *float64   `gorm:"column:current_lng"`
	LocationUpdatedAt *time.Time `gorm:"column:location_updated_at"`

	NotifiedAssigned  bool `gorm:"column:notified_assigned;not null;default:false"`
	NotifiedStarted   bool `gorm:"column:notified_started;not null;default:false"`
	NotifiedCompleted bool `gorm:"column:notified_completed;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
