package models

import (
	"time"

	id "custodia/pkg/domain"
)

// RetentionSchedule maps document types to the duration after which a
// document becomes eligible for expiry. Unknown types use the default entry.
type RetentionSchedule map[id.DocumentType]time.Duration

// DefaultRetentionSchedule mirrors the retention policy the service ships
// with. Operators override it through configuration at wiring time.
func DefaultRetentionSchedule() RetentionSchedule {
	const day = 24 * time.Hour
	return RetentionSchedule{
		"legal":              10 * 365 * day,
		"financial":          7 * 365 * day,
		"medical":            20 * 365 * day,
		"identity":           5 * 365 * day,
		id.DocumentTypeDefault: 365 * day,
	}
}

// Duration resolves the retention for a type, falling back to default.
func (r RetentionSchedule) Duration(docType id.DocumentType) time.Duration {
	if d, ok := r[docType]; ok {
		return d
	}
	return r[id.DocumentTypeDefault]
}
