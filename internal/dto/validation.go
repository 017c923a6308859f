package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

// RegisterCustomValidations adds split-aware checks to gin's binding
// validator so malformed share inputs are rejected before they reach the
// service layer.
func RegisterCustomValidations(v *validator.Validate) {
	v.RegisterStructValidation(validateCreateExpenseShares, CreateExpenseRequest{})
}

// validateCreateExpenseShares enforces that each share carries the field its
// split type requires: minorUnits for CUSTOM, percentage for PERCENTAGE.
func validateCreateExpenseShares(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateExpenseRequest)
	for _, share := range req.Participants {
		switch req.SplitType {
		case domain.SplitCustom:
			if share.MinorUnits == nil {
				sl.ReportError(share.MinorUnits, "minorUnits", "MinorUnits", "required_for_custom_split", "")
			}
		case domain.SplitPercentage:
			if share.Percentage == nil {
				sl.ReportError(share.Percentage, "percentage", "Percentage", "required_for_percentage_split", "")
			}
		}
	}
}
