package assignments

import (
	"time"

	"github.com/google/uuid"

	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/Hazher89/oppdrag-app/pkg/types"
)

// AssignmentDTO is the transport shape for a single assignment.
type AssignmentDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`

	DriverID     uuid.UUID `json:"driver_id"`
	DriverName   string    `json:"driver_name,omitempty"`
	AssignedByID uuid.UUID `json:"assigned_by_id"`
	CompanyID    string    `json:"company_id"`

	Status   enums.AssignmentStatus   `json:"status"`
	Priority enums.AssignmentPriority `json:"priority"`

	PickupLocation   types.GeoLocation `json:"pickup_location"`
	DeliveryLocation types.GeoLocation `json:"delivery_location"`

	ScheduledPickupTime   *time.Time `json:"scheduled_pickup_time,omitempty"`
	ScheduledDeliveryTime *time.Time `json:"scheduled_delivery_time,omitempty"`
	ActualPickupTime      *time.Time `json:"actual_pickup_time,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actual_delivery_time,omitempty"`

	PDFFileName *string `json:"pdf_file_name,omitempty"`
	PDFFilePath *string `json:"pdf_file_path,omitempty"`
	PDFFileSize *int64  `json:"pdf_file_size,omitempty"`

	Notes           *string `json:"notes,omitempty"`
	DriverNotes     *string `json:"driver_notes,omitempty"`
	CompletionNotes *string `json:"completion_notes,omitempty"`

	EstimatedDurationMins *int     `json:"estimated_duration_mins,omitempty"`
	DistanceKM            *float64 `json:"distance_km,omitempty"`

	CurrentLocation *types.TrackedLocation `json:"current_location,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAssignmentInput captures a new assignment from an admin.
type CreateAssignmentInput struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"required,min=2"`

	DriverID uuid.UUID `json:"driver_id" validate:"required"`
	Priority string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`

	PickupLocation   types.GeoLocation `json:"pickup_location" validate:"required"`
	DeliveryLocation types.GeoLocation `json:"delivery_location" validate:"required"`

	ScheduledPickupTime   *time.Time `json:"scheduled_pickup_time,omitempty"`
	ScheduledDeliveryTime *time.Time `json:"scheduled_delivery_time,omitempty"`

	Notes                 *string  `json:"notes,omitempty"`
	EstimatedDurationMins *int     `json:"estimated_duration_mins,omitempty" validate:"omitempty,min=1"`
	DistanceKM            *float64 `json:"distance_km,omitempty" validate:"omitempty,gt=0"`
}

// UpdateAssignmentInput captures the admin-editable fields.
type UpdateAssignmentInput struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=2"`

	DriverID *uuid.UUID `json:"driver_id,omitempty"`
	Priority *string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`

	PickupLocation   *types.GeoLocation `json:"pickup_location,omitempty"`
	DeliveryLocation *types.GeoLocation `json:"delivery_location,omitempty"`

	ScheduledPickupTime   *time.Time `json:"scheduled_pickup_time,omitempty"`
	ScheduledDeliveryTime *time.Time `json:"scheduled_delivery_time,omitempty"`

	Notes                 *string  `json:"notes,omitempty"`
	EstimatedDurationMins *int     `json:"estimated_duration_mins,omitempty" validate:"omitempty,min=1"`
	DistanceKM            *float64 `json:"distance_km,omitempty" validate:"omitempty,gt=0"`
}

// UpdateStatusInput carries a status transition request.
type UpdateStatusInput struct {
	Status string  `json:"status" validate:"required,oneof=pending accepted in_progress completed cancelled"`
	Notes  *string `json:"notes,omitempty"`
}

// UpdateLocationInput carries a live position report from the driver.
type UpdateLocationInput struct {
	Lat float64 `json:"lat" validate:"required,latitude"`
	Lng float64 `json:"lng" validate:"required,longitude"`
}

// ListFilter narrows an assignment listing.
type ListFilter struct {
	Status   *enums.AssignmentStatus
	Priority *enums.AssignmentPriority
	DriverID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// FromModel converts the persisted row into its transport shape.
func FromModel(a *models.Assignment) *AssignmentDTO {
	if a == nil {
		return nil
	}

	dto := &AssignmentDTO{
		ID:                    a.ID,
		Title:                 a.Title,
		Description:           a.Description,
		DriverID:              a.DriverID,
		AssignedByID:          a.AssignedByID,
		CompanyID:             a.CompanyID,
		Status:                a.Status,
		Priority:              a.Priority,
		PickupLocation:        a.PickupLocation,
		DeliveryLocation:      a.DeliveryLocation,
		ScheduledPickupTime:   a.ScheduledPickupTime,
		ScheduledDeliveryTime: a.ScheduledDeliveryTime,
		ActualPickupTime:      a.ActualPickupTime,
		ActualDeliveryTime:    a.ActualDeliveryTime,
		PDFFileName:           a.PDFFileName,
		PDFFilePath:           a.PDFFilePath,
		PDFFileSize:           a.PDFFileSize,
		Notes:                 a.Notes,
		DriverNotes:           a.DriverNotes,
		CompletionNotes:       a.CompletionNotes,
		EstimatedDurationMins: a.EstimatedDurationMins,
		DistanceKM:            a.DistanceKM,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}

	if a.CurrentLat != nil && a.CurrentLng != nil && a.LocationUpdatedAt != nil {
		dto.CurrentLocation = &types.TrackedLocation{
			Lat:        *a.CurrentLat,
			Lng:        *a.CurrentLng,
			ReportedAt: *a.LocationUpdatedAt,
		}
	}

	return dto
}
