package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// DeviceCodeGrant polls the token endpoint with a device code until the
	// user has entered the matching user code (RFC 8628).
	DeviceCodeGrant GrantType = "urn:ietf:params:oauth:grant-type:device_code"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	RefreshTokenGrant GrantType = "refresh_token"
)

// Endpoint paths relative to the provider's login base URL.
const (
	DeviceCodePath = "/devicecode"
	TokenPath      = "/token"
)

// Form field names used by the device authorization grant.
const (
	FieldClientID     = "client_id"
	FieldScope        = "scope"
	FieldGrantType    = "grant_type"
	FieldDeviceCode   = "device_code"
	FieldRefreshToken = "refresh_token"
)

// ErrorCode is the provider's machine-readable error identifier.
type ErrorCode string

const (
	// AuthorizationPending: the user has not entered the code yet; poll again later.
	AuthorizationPending ErrorCode = "authorization_pending"
	// AuthorizationDeclined: the user refused the request.
	AuthorizationDeclined ErrorCode = "authorization_declined"
	// BadVerificationCode: the device code was not recognised.
	BadVerificationCode ErrorCode = "bad_verification_code"
	// ExpiredToken: the device code timed out; a new one is needed.
	ExpiredToken ErrorCode = "expired_token"
)
