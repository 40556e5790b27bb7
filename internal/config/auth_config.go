package config

const (
	ClientIDVar     = "INTEGRATE_AD_CLIENT_ID"
	LoginBaseURLVar = "INTEGRATE_AD_LOGIN_BASE_URL"
	GraphBaseURLVar = "MS_GRAPH_BASE_URL"
	ScopeVar        = "AUTH_SCOPE"

	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
)

type AuthConfig interface {
	GetClientID() string
	GetLoginBaseURL() string
	GetGraphBaseURL() string
	// GetScope returns the configured scope, or "" to use the flow default.
	GetScope() string
}

type Auth struct{}

var _ AuthConfig = Auth{}

func (Auth) GetClientID() string {
	return GetEnv(ClientIDVar, "")
}

// GetLoginBaseURL is the tenant's OAuth base, e.g.
// https://login.microsoftonline.com/<tenant>/oauth2/v2.0
func (Auth) GetLoginBaseURL() string {
	return GetEnv(LoginBaseURLVar, "")
}

func (Auth) GetGraphBaseURL() string {
	return GetEnv(GraphBaseURLVar, defaultGraphBaseURL)
}

func (Auth) GetScope() string {
	return GetEnv(ScopeVar, "")
}
