package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"
)

// StaticCredential is a fixed subject and attribute set, used by the CLI and tests.
type StaticCredential struct {
	ID         string
	Attributes map[string]string
}

// NewStaticCredential returns a credential for subject carrying role under DefaultRoleAttribute.
func NewStaticCredential(subject, role string) StaticCredential {
	attrs := map[string]string{}
	if role != "" {
		attrs[DefaultRoleAttribute] = role
	}
	return StaticCredential{ID: subject, Attributes: attrs}
}

func (c StaticCredential) GetID() (string, error) {
	if c.ID == "" {
		return "", errors.New("credential has no id")
	}
	return c.ID, nil
}

func (c StaticCredential) GetAttributeValue(name string) (string, bool, error) {
	v, ok := c.Attributes[name]
	return v, ok, nil
}

// ClaimsCredential exposes the claims of a token the gateway has already verified.
// The subject comes from the "sub" claim and attributes are top-level claims,
// either a string or a single-element string array.
type ClaimsCredential struct {
	Claims jwt.MapClaims
}

func (c ClaimsCredential) GetID() (string, error) {
	sub, err := c.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read sub claim: %w", err)
	}
	if sub == "" {
		return "", errors.New("token has no sub claim")
	}
	return sub, nil
}

func (c ClaimsCredential) GetAttributeValue(name string) (string, bool, error) {
	raw, ok := c.Claims[name]
	if !ok {
		return "", false, nil
	}
	if v, ok := raw.(string); ok {
		return v, true, nil
	}

	var values []string
	if err := mapstructure.Decode(raw, &values); err != nil {
		return "", true, fmt.Errorf("claim %q is %T, not a string", name, raw)
	}
	if len(values) != 1 {
		return "", true, fmt.Errorf("claim %q has %d values, want one", name, len(values))
	}
	return values[0], true, nil
}
