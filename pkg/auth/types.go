package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
)

// Credentials are the username/password pair for the web login form.
// Never logged in clear text; String masks the password.
type Credentials struct {
	Username string
	Password string
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// String implements fmt.Stringer with the password masked, so an accidental
// %v of credentials never leaks the password into a log file.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{username:%q, password:[REDACTED]}", c.Username)
}

// AuthToken is an issued access token. Tokens are values: a refresh produces
// a new AuthToken, existing ones are never mutated in place.
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// Refreshable reports whether the token carries a refresh token.
func (t AuthToken) Refreshable() bool {
	return t.RefreshToken != ""
}

// ExpiredAt reports whether the token is past expiry at the given instant.
func (t AuthToken) ExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// NearExpiryAt reports whether the token is within threshold of expiry
// (or already expired) at the given instant.
func (t AuthToken) NearExpiryAt(now time.Time, threshold time.Duration) bool {
	return !t.ExpiresAt.After(now.Add(threshold))
}

// Authorization returns the value for an Authorization header.
func (t AuthToken) Authorization() string {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + t.AccessToken
}

// User is the authenticated user's identity and profile.
type User struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Avatar      string            `json:"avatar,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// Session pairs a valid token with the authenticated user. It is the unit
// persisted to storage: created at login, replaced wholesale on refresh,
// cleared on logout.
type Session struct {
	Token AuthToken `json:"token"`
	User  User      `json:"user"`
}

// tokenFromJSON builds an AuthToken from a token endpoint body. The platform
// has used both a flat shape and one nested under "token", so both are
// probed. Returns false when no access token is present.
//
// ExpiresAt is always in the future at creation: explicit expires_in wins,
// then the JWT exp claim of the access token, then the configured fallback
// lifetime. A derived expiry already in the past also falls back, keeping
// the invariant.
func tokenFromJSON(body []byte, fallbackLifetime time.Duration, now time.Time) (*AuthToken, bool) {
	root := gjson.ParseBytes(body)
	node := root
	if nested := root.Get("token"); nested.IsObject() {
		node = nested
	}

	accessToken := node.Get("access_token").String()
	if accessToken == "" {
		return nil, false
	}

	token := &AuthToken{
		AccessToken:  accessToken,
		TokenType:    node.Get("token_type").String(),
		RefreshToken: node.Get("refresh_token").String(),
		Scope:        node.Get("scope").String(),
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}

	if expiresIn := node.Get("expires_in").Int(); expiresIn > 0 {
		token.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	} else if exp, ok := jwtExpiry(accessToken); ok && exp.After(now) {
		token.ExpiresAt = exp
	} else {
		token.ExpiresAt = now.Add(fallbackLifetime)
	}

	return token, true
}

// jwtExpiry extracts the exp claim from a JWT access token without verifying
// the signature. The token's validity is the platform's concern; only the
// lifetime is needed here.
func jwtExpiry(raw string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// userIDFromJSON extracts the user identifier from a profile body, converting
// numeric ids to their canonical string form. Both nested and flat shapes
// are probed.
func userIDFromJSON(body []byte) (string, bool) {
	root := gjson.ParseBytes(body)
	for _, path := range []string{"user.userId", "user.id", "userId", "id"} {
		if id := root.Get(path); id.Exists() && id.String() != "" {
			return id.String(), true
		}
	}
	return "", false
}
