// -----------------------------------------------------------------------
// Property - Address queued for a field visit
// -----------------------------------------------------------------------

package models

import "time"

// PropertyStatus tracks whether a property's contact data is ready for the
// route sheet.
type PropertyStatus string

const (
	PropertyStatusPending PropertyStatus = "pending"
	PropertyStatusReady   PropertyStatus = "ready"
)

// Property is an address awaiting a field visit. The extraction orchestrator
// fills the customer fields and flips Status to ready.
type Property struct {
	ID            string         `json:"id" badgerhold:"key"`
	Street        string         `json:"street"`
	Zip           string         `json:"zip"`
	Status        PropertyStatus `json:"status"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	DataExtracted bool           `json:"data_extracted"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ApplyExtraction writes extracted customer data onto the property and marks
// it ready.
func (p *Property) ApplyExtraction(data *ExtractedCustomerData) {
	p.CustomerName = data.CustomerName
	p.CustomerPhone = data.CustomerPhone
	p.CustomerEmail = data.CustomerEmail
	p.DataExtracted = true
	p.Status = PropertyStatusReady
	p.UpdatedAt = time.Now()
}
