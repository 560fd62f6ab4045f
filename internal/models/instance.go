package models

import "time"

// ProvisionedInstance is a provisioned model throughput as reported by the
// managed model provider, surfaced to admins for capacity/billing review.
type ProvisionedInstance struct {
	Name           string    `json:"name"`
	ARN            string    `json:"arn"`
	ModelARN       string    `json:"model_arn"`
	ModelUnits     int32     `json:"model_units"`
	Status         string    `json:"status"`
	Commitment     string    `json:"commitment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// InstanceRecord is the backend's bookkeeping row for a provisioned
// instance (customer assignment, plan), joined with live provider data
// in the admin console.
type InstanceRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CustomerID string    `json:"customer_id,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// InstanceView combines a bookkeeping record with live provider state
type InstanceView struct {
	Record *InstanceRecord      `json:"record,omitempty"`
	Live   *ProvisionedInstance `json:"live,omitempty"`
}
