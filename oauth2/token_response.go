package oauth2

// DeviceCodeResponse is returned by the device authorization endpoint.
type DeviceCodeResponse struct {
	DeviceCode string `json:"device_code"`
	UserCode   string `json:"user_code"`
	// VerificationURI is where the user enters UserCode.
	VerificationURI string `json:"verification_uri"`
	// Message is the provider's ready-made instruction text for the user.
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in,omitempty"`
	Interval  int    `json:"interval,omitempty"`
}

// TokenResponse is returned by the token endpoint for both the device code
// and the refresh token grants.
type TokenResponse struct {
	TokenType string `json:"token_type,omitempty"`
	Scope     string `json:"scope,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	AccessToken string `json:"access_token,omitempty"`

	// RefreshToken may be absent on refresh; the previous one stays valid then.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// IdToken is only present when the openid scope was granted.
	IdToken *string `json:"id_token,omitempty"`
}

// ErrorResponse is the provider's structured error body.
type ErrorResponse struct {
	Error            ErrorCode `json:"error"`
	ErrorDescription string    `json:"error_description,omitempty"`
}
