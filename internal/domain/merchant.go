package domain

import "time"

type Merchant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	ExternalRef string    `json:"external_ref,omitempty"` // merchant id at the settlement service
	CreatedAt   time.Time `json:"created_at"`
}
