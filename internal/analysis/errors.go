package analysis

import (
	"errors"

	"github.com/riskscope/riskscope/internal/blob"
	"github.com/riskscope/riskscope/internal/store"
	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

var validationErrors = []error{
	scoring.ErrEmptyObservationSet,
	scoring.ErrMissingMetric,
	scoring.ErrDuplicateObservation,
	scoring.ErrScoreOutOfRange,
	scoring.ErrConfidenceOutOfRange,
	catalog.ErrUnknownMetric,
	report.ErrInvalidIdentity,
	batch.ErrCapacityExceeded,
	export.ErrUnsupportedFormat,
	export.ErrUnsupportedPlatform,
	store.ErrInvalidWatchItem,
}

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, blob.ErrNotFound)
}
