package domain

import "dispatch/pkg/apperror"

// VehicleStatus is the operational state of a Vehicle.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleInUse       VehicleStatus = "in_use"
	VehicleMaintenance VehicleStatus = "maintenance"
)

// Vehicle carries a team of Personnel along a Route for one service day.
type Vehicle struct {
	ID                int64
	Identifier        string
	CapacityPersonnel int
	BaseLocation      Location
	Status            VehicleStatus
	Resources         map[string]struct{}
	IsActive          bool
}

// NewVehicle validates CapacityPersonnel and Status before constructing.
func NewVehicle(id int64, identifier string, capacity int, base Location, status VehicleStatus, resources map[string]struct{}, active bool) (Vehicle, error) {
	if identifier == "" {
		return Vehicle{}, apperror.InvalidInput("identifier", "must not be empty")
	}
	if capacity < 1 {
		return Vehicle{}, apperror.InvalidInput("capacity_personnel", "must be at least 1")
	}
	switch status {
	case VehicleAvailable, VehicleInUse, VehicleMaintenance:
	default:
		return Vehicle{}, apperror.InvalidInput("status", "must be available, in_use, or maintenance")
	}
	return Vehicle{
		ID:                id,
		Identifier:        identifier,
		CapacityPersonnel: capacity,
		BaseLocation:      base,
		Status:            status,
		Resources:         resources,
		IsActive:          active,
	}, nil
}
