package coupon

import (
	"time"

	"github.com/chapelleverte/petitiond/internal/model"
)

// Failure identifies why a coupon was rejected. All failures are results,
// not errors: callers branch on Valid.
type Failure string

const (
	FailureNone        Failure = ""
	FailureNoCode      Failure = "no_code"
	FailureInvalidCode Failure = "invalid_code"
	FailureExpired     Failure = "expired"
	FailureDepleted    Failure = "depleted"
)

// ValidationResult is the typed outcome of validating a coupon code.
type ValidationResult struct {
	Valid   bool          `json:"valid"`
	Coupon  *model.Coupon `json:"coupon,omitempty"`
	Error   Failure       `json:"error,omitempty"`
	Message string        `json:"message"`
}

func invalid(failure Failure, message string) ValidationResult {
	return ValidationResult{Error: failure, Message: message}
}

// Check applies the validation order from the coupon contract: presence,
// existence, expiry, remaining credits. A nil coupon means not found.
func Check(code string, c *model.Coupon, now time.Time) ValidationResult {
	if code == "" {
		return invalid(FailureNoCode, "no coupon code provided")
	}
	if c == nil {
		return invalid(FailureInvalidCode, "coupon code not found")
	}
	if c.Expired(now) {
		return invalid(FailureExpired, "coupon has expired")
	}
	if c.Depleted() {
		return invalid(FailureDepleted, "no generations left on this coupon")
	}
	return ValidationResult{Valid: true, Coupon: c, Message: "coupon is valid"}
}
