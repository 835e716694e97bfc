package geo

import "github.com/uyirkavalan/uyirkavalan/internal/api/models"

// Coordinate and accuracy limits.
const (
	MaxAccuracyMetres = 100.0
)

// ValidatePoint checks that p is a valid coordinate. prefix names the field in errors.
func ValidatePoint(p Point, prefix string) []models.FieldError {
	var errs []models.FieldError

	if p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, models.FieldError{
			Field:   prefix + ".lat",
			Message: "must be between -90 and 90",
		})
	}

	if p.Lon < -180 || p.Lon > 180 {
		errs = append(errs, models.FieldError{
			Field:   prefix + ".lon",
			Message: "must be between -180 and 180",
		})
	}

	return errs
}

// ValidateLocation checks the coordinate and the optional accuracy of loc.
func ValidateLocation(loc Location, prefix string) []models.FieldError {
	errs := ValidatePoint(loc.Point, prefix)

	if loc.Accuracy != nil && (*loc.Accuracy < 0 || *loc.Accuracy > MaxAccuracyMetres) {
		errs = append(errs, models.FieldError{
			Field:   prefix + ".accuracy",
			Message: "must be between 0 and 100",
		})
	}

	return errs
}
