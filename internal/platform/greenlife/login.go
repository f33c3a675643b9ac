package greenlife

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// Login endpoints per operator role.
const (
	AdminLoginPath   = "/registration/login"
	ManagerLoginPath = "/region-manager/login"
)

// ErrNoToken is returned when a login answer carries no bearer token.
var ErrNoToken = errors.New("greenlife: login response without token")

// Credentials are sent as query parameters, as the backend expects.
type Credentials struct {
	Username string
	Password string
}

// LoginResult is the decoded login answer.
type LoginResult struct {
	Token       string
	Name        string
	GroupName   string
	Permissions map[string]bool
}

// Login exchanges credentials for a bearer token and the operator's group.
func (c *Client) Login(ctx context.Context, path string, creds Credentials) (LoginResult, error) {
	query := url.Values{}
	query.Set("username", creds.Username)
	query.Set("password", creds.Password)

	var raw map[string]json.RawMessage
	if err := c.Post(ctx, path, query, nil, &raw); err != nil {
		return LoginResult{}, err
	}
	return parseLogin(raw)
}

func parseLogin(raw map[string]json.RawMessage) (LoginResult, error) {
	if inner, ok := raw["data"]; ok && firstString(raw, "token", "accessToken", "access_token") == "" {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(inner, &nested); err == nil {
			raw = nested
		}
	}
	result := LoginResult{
		Token: firstString(raw, "token", "accessToken", "access_token", "jwt"),
		Name:  firstString(raw, "name", "fullName", "username"),
	}
	if result.Token == "" {
		return LoginResult{}, ErrNoToken
	}

	var group map[string]json.RawMessage
	for _, key := range []string{"group", "groupData", "groups"} {
		if body, ok := raw[key]; ok && json.Unmarshal(body, &group) == nil {
			break
		}
	}
	if group == nil {
		group = raw
	}
	result.GroupName = firstString(group, "groupName", "name")
	result.Permissions = parsePermissions(group["permissions"])
	return result, nil
}

// parsePermissions accepts a flag map whose values may be booleans, numbers
// or "true"/"false" strings.
func parsePermissions(body json.RawMessage) map[string]bool {
	perms := make(map[string]bool)
	if len(body) == 0 {
		return perms
	}
	var values map[string]any
	if err := json.Unmarshal(body, &values); err != nil {
		return perms
	}
	for flag, v := range values {
		if truthy(v) {
			perms[flag] = true
		}
	}
	return perms
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		body, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(body, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
