package shared

import (
	"time"

	"github.com/google/uuid"
)

// Audit carries the creation/update stamps every entity row records.
type Audit struct {
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedOn time.Time  `json:"created_on"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedOn *time.Time `json:"updated_on,omitempty"`
}
