package domain

import "errors"

var (
	// ErrMultipleUnits is returned when single-unit input spans several destination units.
	ErrMultipleUnits = errors.New("the dataset has more than one CBG")

	// ErrInvalidUID is returned for day indexes below 1.
	ErrInvalidUID = errors.New("uid must be a positive integer")

	// ErrInvalidWindow is returned for smoothing windows below 1.
	ErrInvalidWindow = errors.New("smoothing window must be at least 1")

	// ErrUnitNotFound is returned when a requested unit has no rows.
	ErrUnitNotFound = errors.New("unit not found")
)

// Special-case messages reported by the models.
const (
	msgNoData            = "no observations available"
	msgNeverBreached     = "The mobility never went down the baseline during disaster. Abnormal pattern."
	msgRoseDuringEvent   = "The mobility went up during disaster. Abnormal pattern"
	msgNoImpactWindow    = "no observations between disaster start and recovery"
	msgNoPostEventValues = "no finite observations after disaster end"
)
