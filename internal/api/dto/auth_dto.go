package dto

import "time"

// EnrollDeviceRequest payload.
type EnrollDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=128"`
	Label    string `json:"label" validate:"max=128"`
	Secret   string `json:"secret" validate:"required"`
}

// EnrollDeviceResponse carries the issued token.
type EnrollDeviceResponse struct {
	DeviceID   string    `json:"device_id"`
	Label      string    `json:"label"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}
