package providers

import "strings"

// oauthTokenPrefix marks Anthropic OAuth access tokens; anything else in the
// token slot is treated as a bearer token without OAuth semantics.
const oauthTokenPrefix = "sk-ant-oat"

// Credentials is what the auth store resolves for a provider: an OAuth/bearer
// token, an API key, or both (token wins).
type Credentials struct {
	Token  string
	APIKey string
}

// IsOAuth reports whether the token is an Anthropic OAuth access token,
// which selects the OAuth header set and the CLI identity system block.
func (c Credentials) IsOAuth() bool {
	return strings.HasPrefix(c.Token, oauthTokenPrefix)
}

// Empty reports whether no credential is present at all.
func (c Credentials) Empty() bool {
	return c.Token == "" && c.APIKey == ""
}
