package errors

// Error codes following consistent naming convention
const (
	// Construction-time errors
	ErrCodeBadInterval   = "BAD_INTERVAL"
	ErrCodeAuthInvalid   = "AUTH_INVALID"
	ErrCodeTokenRequired = "TOKEN_REQUIRED" // #nosec G101 -- Not a credential, just an error code constant
	ErrCodeInvalidConfig = "INVALID_CONFIG"

	// Request-time errors
	ErrCodeUplinkOffline     = "UPLINK_OFFLINE"
	ErrCodeNotFoundUplink    = "NOT_FOUND_UPLINK"
	ErrCodeNotFileUplink     = "NOT_FILE_UPLINK"
	ErrCodeNotModifiedNoData = "NOT_MODIFIED_NO_DATA"
	ErrCodeBadStatusCode     = "BAD_STATUS_CODE"
	ErrCodeContentMismatch   = "CONTENT_MISMATCH"
	ErrCodeUpstreamError     = "UPSTREAM_ERROR"
)

// HTTPStatusCode maps error codes to HTTP status codes for the enclosing server
var HTTPStatusCode = map[string]int{
	ErrCodeBadInterval:       400,
	ErrCodeAuthInvalid:       400,
	ErrCodeTokenRequired:     401,
	ErrCodeInvalidConfig:     400,
	ErrCodeUplinkOffline:     503,
	ErrCodeNotFoundUplink:    404,
	ErrCodeNotFileUplink:     404,
	ErrCodeNotModifiedNoData: 304,
	ErrCodeBadStatusCode:     502,
	ErrCodeContentMismatch:   502,
	ErrCodeUpstreamError:     502,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := HTTPStatusCode[code]; ok {
		return status
	}
	return 500 // Default to internal server error
}
