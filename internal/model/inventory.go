package model

import "time"

type Category struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Threshold   int       `json:"threshold"`
	AutoList    bool      `json:"auto_list"`
	ManualList  bool      `json:"manual_list"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
