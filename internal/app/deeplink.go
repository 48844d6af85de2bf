package app

import (
	"net/url"
	"strings"

	"trivia-night/internal/domain"
)

// Role is the participant kind carried by a deep link. It is a convention, not a credential.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
)

// DeepLink carries the parameters that let a participant rejoin without typing them.
type DeepLink struct {
	Code string
	Team string
	Role Role
}

// ParseDeepLink reads code, team and role from a query string, with or without the leading "?".
func ParseDeepLink(query string) (DeepLink, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return DeepLink{}, err
	}
	return DeepLinkFromValues(values), nil
}

// DeepLinkFromValues reads a deep link from parsed query parameters.
func DeepLinkFromValues(v url.Values) DeepLink {
	return DeepLink{
		Code: domain.NormalizeCode(v.Get("code")),
		Team: strings.TrimSpace(v.Get("team")),
		Role: Role(v.Get("role")),
	}
}

// IsZero reports whether the link carries nothing to join.
func (l DeepLink) IsZero() bool {
	return l.Code == "" && l.Team == "" && l.Role == ""
}

// Values encodes the link. The team is only carried for players.
func (l DeepLink) Values() url.Values {
	v := url.Values{}
	if l.Code != "" {
		v.Set("code", l.Code)
	}
	if l.Role == RolePlayer && l.Team != "" {
		v.Set("team", l.Team)
	}
	if l.Role != "" {
		v.Set("role", string(l.Role))
	}
	return v
}

// Query returns "?code=…&role=…" or "" for an empty link.
func (l DeepLink) Query() string {
	v := l.Values()
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
