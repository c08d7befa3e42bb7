package models

import "time"

// Command represents a bot auto-reply rule as defined in the remote command store
type Command struct {
	ID          int64     `json:"id"`
	Trigger     string    `json:"trigger"`
	Response    string    `json:"response"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommandInput is the payload accepted when creating or updating a command
type CommandInput struct {
	Trigger     string `json:"trigger"`
	Response    string `json:"response"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}
