package aws

import (
	"errors"
	"fmt"

	sqtypes "github.com/aws/aws-sdk-go-v2/service/servicequotas/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrAuth marks credential failures. These abort the whole operation
	// and are never retried here.
	ErrAuth = errors.New("authentication failed")

	// ErrNotAdjustable marks submissions rejected before any remote call.
	ErrNotAdjustable = errors.New("quota is not adjustable")
)

var authErrorCodes = map[string]struct{}{
	"AccessDenied":                {},
	"AccessDeniedException":       {},
	"ExpiredToken":                {},
	"ExpiredTokenException":       {},
	"InvalidClientTokenId":        {},
	"SignatureDoesNotMatch":       {},
	"UnrecognizedClientException": {},
}

var throttleErrorCodes = map[string]struct{}{
	"Throttling":               {},
	"ThrottlingException":      {},
	"TooManyRequestsException": {},
	"RequestLimitExceeded":     {},
	"SlowDown":                 {},
}

func isThrottle(err error) bool {
	var tmr *sqtypes.TooManyRequestsException
	if errors.As(err, &tmr) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		_, ok := throttleErrorCodes[ae.ErrorCode()]
		return ok
	}
	return false
}

func isAuth(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		_, ok := authErrorCodes[ae.ErrorCode()]
		return ok
	}
	return false
}

// classify wraps err with ErrAuth when it looks like a credential problem,
// keeping enough context to be actionable without reading logs.
func classify(err error, profile, region string) error {
	if err == nil {
		return nil
	}
	if isAuth(err) {
		return fmt.Errorf("%w for profile %q in %s: %v", ErrAuth, profile, region, err)
	}
	return fmt.Errorf("profile %q in %s: %w", profile, region, err)
}
