package model

import "time"

// Caps on list-valued company attributes. Applied after all analysis
// fragments have been merged, not per fragment.
const (
	MaxServices        = 5
	MaxDifferentiators = 3
)

// Company is an organization with attributes discovered from analysis text.
type Company struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Website         string    `json:"website,omitempty"`
	Size            int       `json:"size,omitempty"`
	Services        []string  `json:"services,omitempty"`
	Differentiation []string  `json:"differentiation,omitempty"`
	ValidationPoints int      `json:"validation_points"`
	TotalScore      int       `json:"total_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CompanyAttrs holds attributes mined from analysis fragments before they are
// merged into a persisted Company. TotalScore is derived, never set directly.
type CompanyAttrs struct {
	Size            int      `json:"size,omitempty"`
	Services        []string `json:"services,omitempty"`
	Differentiation []string `json:"differentiation,omitempty"`
}

// SearchContext carries everything a provider adapter needs for one call.
// Passed by value; never persisted.
type SearchContext struct {
	ContactID   string
	ContactName string
	CompanyName string
	Website     string
	Domain      string
	Timeout     time.Duration
	MaxDepth    int
	MaxPages    int
}

// CreditStatus is the billing collaborator's answer to a pre-search check.
type CreditStatus struct {
	Balance   int  `json:"balance"`
	IsBlocked bool `json:"is_blocked"`
}

// ChargeResult is the billing collaborator's answer to a charge call.
type ChargeResult struct {
	Success    bool `json:"success"`
	Charged    bool `json:"charged"`
	NewBalance int  `json:"new_balance"`
}
