package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var validate = validator.New()

// Contact is the buyer contact snapshot copied onto the order.
type Contact struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Phone   string `json:"phone" validate:"required,max=50"`
	Address string `json:"address" validate:"required,max=1000"`
}

// Normalize trims surrounding whitespace and lowercases the email.
func (c Contact) Normalize() Contact {
	return Contact{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

// FieldViolation names one rejected checkout field.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidateRequest checks the contact snapshot and payment method together and
// reports every violation at once.
func ValidateRequest(contact Contact, method enums.PaymentMethod) error {
	var violations []FieldViolation
	if err := validate.Struct(contact); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate contact")
		}
		for _, fe := range fieldErrs {
			violations = append(violations, FieldViolation{
				Field: "contact." + strings.ToLower(fe.Field()),
				Rule:  fe.Tag(),
			})
		}
	}
	if !method.IsValid() {
		violations = append(violations, FieldViolation{Field: "payment_method", Rule: "oneof"})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("checkout request has %d invalid field(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
