package model

import "time"

// LegacyCategory and LegacyProduct hold inventory records created before
// household scoping existed. OwnerUID is nil for rows that predate ownership
// tracking; those migrate for whichever user runs the import first.

type LegacyCategory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerUID  *string   `json:"owner_uid"`
	CreatedAt time.Time `json:"created_at"`
}

type LegacyProduct struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"threshold"`
	AutoList   bool      `json:"auto_list"`
	ManualList bool      `json:"manual_list"`
	OwnerUID   *string   `json:"owner_uid"`
	CreatedAt  time.Time `json:"created_at"`
}
