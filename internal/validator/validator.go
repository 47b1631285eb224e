package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
)

// Validator wraps struct-tag validation for request DTOs
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	// Difficulty level validation
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)

	// User role validation
	validate.RegisterValidation("user_role", validateUserRole)

	// Suspicion level validation
	validate.RegisterValidation("suspicion_level", validateSuspicionLevel)

	// Sort direction validation
	validate.RegisterValidation("sort_order", validateSortOrder)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateDifficultyLevel(fl validator.FieldLevel) bool {
	validLevels := []models.DifficultyLevel{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
	}

	value := fl.Field().String()
	for _, validLevel := range validLevels {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleStudent,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

func validateSuspicionLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, level := range models.SuspicionLevels {
		if string(level) == value {
			return true
		}
	}
	return false
}

func validateSortOrder(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "asc" || value == "desc" || value == ""
}
