package domain

import "time"

// SubjectType differentiates token holders.
type SubjectType string

const SubjectTypeDevice SubjectType = "DEVICE"

// AnonymousDevice is used when a request carries no device identity.
const AnonymousDevice = "anonymous"

// DeviceToken describes an issued device token.
type DeviceToken struct {
	Token     string    `json:"token"`
	DeviceID  string    `json:"device_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Device is a client installation enrolled with the shared secret.
type Device struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	EnrolledAt time.Time `json:"enrolled_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
