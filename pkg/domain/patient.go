package domain

import (
	"strings"

	"dispatch/pkg/apperror"
	"dispatch/pkg/rut"
)

// Patient is a home-hospitalization patient who receives scheduled visits.
type Patient struct {
	ID           int64
	Name         string
	RUT          string
	Phone        string
	Email        string
	HomeLocation Location
	Address      string
}

// NewPatient validates and normalizes a Patient's RUT before constructing.
// The RUT is optional: an empty value is stored as-is and only a supplied
// one is validated.
func NewPatient(id int64, name, rawRUT, phone, email string, home Location, address string) (Patient, error) {
	if strings.TrimSpace(name) == "" {
		return Patient{}, apperror.InvalidInput("name", "must not be empty")
	}

	var normalizedRUT string
	if strings.TrimSpace(rawRUT) != "" {
		var err error
		normalizedRUT, err = rut.Normalize(rawRUT)
		if err != nil {
			return Patient{}, err
		}
	}

	return Patient{
		ID:           id,
		Name:         name,
		RUT:          normalizedRUT,
		Phone:        phone,
		Email:        email,
		HomeLocation: home,
		Address:      address,
	}, nil
}
