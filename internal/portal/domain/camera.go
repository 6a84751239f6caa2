package domain

import "time"

// Camera status values.
const (
	CameraOnline  = "online"
	CameraOffline = "offline"
)

// Camera is one CCTV feed belonging to a neighborhood unit. StreamSecret is
// the RTSP URL encrypted at rest (it embeds device credentials); the
// plaintext only ever exists transiently while constructing a stream URL.
type Camera struct {
	ID           string
	UnitID       string
	Name         string
	StreamSecret string
	Location     string
	Status       string
	LastOnlineAt *time.Time
	CreatedByID  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CameraSummary is the client-safe projection of a Camera: no stream secret.
type CameraSummary struct {
	ID           string     `json:"id"`
	UnitID       string     `json:"unit_id"`
	Name         string     `json:"name"`
	Location     string     `json:"location,omitempty"`
	Status       string     `json:"status"`
	LastOnlineAt *time.Time `json:"last_online_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (c Camera) Summary() CameraSummary {
	return CameraSummary{
		ID:           c.ID,
		UnitID:       c.UnitID,
		Name:         c.Name,
		Location:     c.Location,
		Status:       c.Status,
		LastOnlineAt: c.LastOnlineAt,
		CreatedAt:    c.CreatedAt,
	}
}

// Village is the top-level organizational entity.
type Village struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unit is a neighborhood unit within a village. Accounts and cameras hang
// off units.
type Unit struct {
	ID        string
	VillageID string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
