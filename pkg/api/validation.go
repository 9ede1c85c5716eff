package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Validation patterns
var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// PriceIntervals accepted by the price history endpoint
var PriceIntervals = []string{"1d", "1w", "1m", "all"}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Validator provides validation methods
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// GetErrors returns all validation errors
func (v *Validator) GetErrors() ValidationErrors {
	return v.errors
}

// ValidateEmail validates an email address
func (v *Validator) ValidateEmail(field, email string) {
	if email == "" {
		v.AddError(field, "email is required")
		return
	}

	if len(email) > 254 {
		v.AddError(field, "email is too long")
		return
	}

	if !emailRegex.MatchString(email) {
		v.AddError(field, "invalid email format")
	}
}

// ValidateString validates a general string field
func (v *Validator) ValidateString(field, value string, minLen, maxLen int, required bool) {
	if value == "" {
		if required {
			v.AddError(field, fmt.Sprintf("%s is required", field))
		}
		return
	}

	if len(value) < minLen {
		v.AddError(field, fmt.Sprintf("%s must be at least %d characters", field, minLen))
	}

	if maxLen > 0 && len(value) > maxLen {
		v.AddError(field, fmt.Sprintf("%s must be at most %d characters", field, maxLen))
	}
}

// ValidateInterval checks a price history interval
func (v *Validator) ValidateInterval(field, interval string) {
	for _, valid := range PriceIntervals {
		if interval == valid {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("invalid interval (valid intervals: %s)", strings.Join(PriceIntervals, ", ")))
}

// QueryInt parses an optional integer query parameter. An absent parameter
// yields nil. Values outside [1, maxLimit] are reported.
func (v *Validator) QueryInt(c *gin.Context, field string, maxLimit int) *int {
	raw := c.Query(field)
	if raw == "" {
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		v.AddError(field, fmt.Sprintf("%s must be an integer", field))
		return nil
	}
	v.ValidateLimit(field, n, maxLimit)
	return &n
}

// QueryOffset parses an optional non-negative offset
func (v *Validator) QueryOffset(c *gin.Context, field string) *int {
	raw := c.Query(field)
	if raw == "" {
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		v.AddError(field, fmt.Sprintf("%s must be an integer", field))
		return nil
	}
	v.ValidateOffset(field, n)
	return &n
}

// QueryBool parses an optional boolean query parameter
func (v *Validator) QueryBool(c *gin.Context, field string) *bool {
	raw := c.Query(field)
	if raw == "" {
		return nil
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		v.AddError(field, fmt.Sprintf("%s must be true or false", field))
		return nil
	}
	return &b
}

// ValidateLimit validates pagination limit
func (v *Validator) ValidateLimit(field string, limit int, maxLimit int) {
	if limit < 1 {
		v.AddError(field, fmt.Sprintf("%s must be at least 1", field))
		return
	}

	if limit > maxLimit {
		v.AddError(field, fmt.Sprintf("%s cannot exceed %d", field, maxLimit))
	}
}

// ValidateOffset validates pagination offset
func (v *Validator) ValidateOffset(field string, offset int) {
	if offset < 0 {
		v.AddError(field, "offset cannot be negative")
	}
}

// SendValidationErrors sends validation errors as JSON response
func SendValidationErrors(c *gin.Context, errors ValidationErrors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Validation failed",
		"details": errors,
	})
}

// MagicLinkRequest is the body of POST /api/auth/magic-link
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// ValidateMagicLinkRequest validates a sign-in request
func ValidateMagicLinkRequest(req MagicLinkRequest) ValidationErrors {
	validator := NewValidator()
	validator.ValidateEmail("email", strings.TrimSpace(req.Email))
	return validator.GetErrors()
}

// WatchlistRequest is the body of POST /api/watchlist
type WatchlistRequest struct {
	MarketID string `json:"marketId"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
}

// ValidateWatchlistRequest validates a watchlist upsert
func ValidateWatchlistRequest(req WatchlistRequest) ValidationErrors {
	validator := NewValidator()
	validator.ValidateString("marketId", req.MarketID, 1, 128, true)
	validator.ValidateString("slug", req.Slug, 1, 255, true)
	validator.ValidateString("title", req.Title, 0, 512, false)
	return validator.GetErrors()
}
