// Package identity projects the caller's subject id and role out of a credential
// that an external identity layer has already authenticated.
package identity

import (
	"encoding/base64"
	"strings"

	apperrors "github.com/satlaunch/payloadledger/internal/errors"
)

// AdminSubject is the subject whose role is always admin.
const AdminSubject = "admin"

// DefaultRoleAttribute is the credential attribute carrying the caller's role.
const DefaultRoleAttribute = "usertype"

// Credential is the already-trusted caller context. The Fabric client identity
// (pkg/cid.ClientIdentity) satisfies it directly.
type Credential interface {
	GetID() (string, error)
	GetAttributeValue(name string) (value string, found bool, err error)
}

// Caller is the resolved identity of the transaction submitter.
type Caller struct {
	Subject string
	Role    string
}

// IsAdmin reports whether the caller carries the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == AdminSubject
}

// Resolver extracts a Caller from a Credential.
type Resolver struct {
	attribute string
}

// NewResolver creates a resolver reading the role from attribute.
// An empty attribute selects DefaultRoleAttribute.
func NewResolver(attribute string) *Resolver {
	if attribute == "" {
		attribute = DefaultRoleAttribute
	}
	return &Resolver{attribute: attribute}
}

// Resolve returns the caller's subject and role. The role lookup is skipped for
// the admin subject. A missing role attribute yields an empty role.
func (r *Resolver) Resolve(cred Credential) (Caller, error) {
	if cred == nil {
		return Caller{}, apperrors.New(apperrors.CodeAuthorization, "no caller credential in transaction context")
	}

	id, err := cred.GetID()
	if err != nil {
		return Caller{}, apperrors.Wrap(apperrors.CodeAuthorization, err, "read caller id")
	}
	subject := SubjectFromID(id)
	if subject == "" {
		return Caller{}, apperrors.New(apperrors.CodeAuthorization, "caller credential has no subject")
	}

	if subject == AdminSubject {
		return Caller{Subject: subject, Role: AdminSubject}, nil
	}

	role, _, err := cred.GetAttributeValue(r.attribute)
	if err != nil {
		return Caller{}, apperrors.Wrap(apperrors.CodeAuthorization, err, "read attribute %q", r.attribute)
	}
	return Caller{Subject: subject, Role: role}, nil
}

// SubjectFromID derives a stable subject from a credential id.
//
// X.509 ids have the form "x509::<subject DN>::<issuer DN>", optionally base64
// encoded, with the DN written either as "/OU=client/CN=alice" or as
// "CN=alice,OU=client". The subject is the common name. Any other id is
// returned unchanged.
func SubjectFromID(id string) string {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, "x509::") {
		if decoded, err := base64.StdEncoding.DecodeString(id); err == nil && strings.HasPrefix(string(decoded), "x509::") {
			id = string(decoded)
		} else {
			return id
		}
	}

	rest := strings.TrimPrefix(id, "x509::")
	subjectDN := rest
	if i := strings.Index(rest, "::"); i >= 0 {
		subjectDN = rest[:i]
	}
	if cn := commonName(subjectDN); cn != "" {
		return cn
	}
	return subjectDN
}

func commonName(dn string) string {
	parts := strings.FieldsFunc(dn, func(r rune) bool { return r == '/' || r == ',' || r == '+' })
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "CN") {
			return strings.TrimSpace(kv[1])
		}
	}
	return ""
}
