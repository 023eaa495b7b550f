package coupon

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// codeAlphabet excludes I, O, 0 and 1 so codes survive being read aloud
// or typed from a printout.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength = 12
	groupSize  = 4
)

var groupedCodeRegexp = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// GenerateCode returns a random ungrouped 12-character coupon code.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// FormatCode groups an ungrouped code as XXXX-XXXX-XXXX for display.
// Codes of unexpected length are returned unchanged.
func FormatCode(code string) string {
	if len(code) != codeLength {
		return code
	}
	var groups []string
	for i := 0; i < len(code); i += groupSize {
		groups = append(groups, code[i:i+groupSize])
	}
	return strings.Join(groups, "-")
}

// NormalizeCode strips dashes and spaces and uppercases, so both the
// grouped display form and the bare form resolve to the stored code.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}

// WellFormed reports whether the code matches the canonical grouped form.
func WellFormed(code string) bool {
	return groupedCodeRegexp.MatchString(code)
}
