package auth

import (
	"net/url"
	"strings"
)

// Platform endpoint paths. The login page issues the token and profile
// responses on these paths as a side effect of the interactive form flow;
// the refresh coordinator calls the token path directly.
const (
	tokenPath   = "/users/v3/token"
	refreshPath = "/users/v3/token/refresh"
	userPath    = "/users/v3/user"

	platformDomain = "trainingpeaks.com"
)

// isTokenURL matches the token-issuance response during the browser flow.
// The refresh path shares the prefix, so it matches too; both carry a token
// body in the same shape.
func isTokenURL(rawURL string) bool {
	return strings.Contains(rawURL, tokenPath)
}

// isUserURL matches the user-profile response.
func isUserURL(rawURL string) bool {
	return strings.Contains(rawURL, userPath)
}

// isPlatformURL reports whether the URL belongs to the platform's domain.
func isPlatformURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == platformDomain || strings.HasSuffix(host, "."+platformDomain)
}

// isAPIURL reports whether the URL targets the platform's API host, where
// any 4xx during login means the credentials were rejected. Static assets on
// the web host can 404 without implying an auth failure, so the generic 4xx
// check is limited to the API host.
func isAPIURL(rawURL string, apiHost string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Hostname() == apiHost
}
