// Package session builds and verifies the signed tokens handed to clients
// as session cookies. A token decodes back to exactly the claims it was
// issued with; any bit-level tampering makes verification fail.
//
// There is no server-side session store: logout only asks the client to
// discard its cookie, and a token captured elsewhere stays usable until its
// absolute expiry.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkovs/cookiegate/internal/common"
	"github.com/avolkovs/cookiegate/internal/server/models"
)

// DefaultValidity is the absolute session lifetime used when no explicit
// duration is configured.
const DefaultValidity = 20 * time.Minute

// Policy describes the validity rules a session is issued under. Expiry is
// absolute: issue time plus Validity. AllowRefresh is carried in the token
// for the client's benefit; nothing on the server slides the expiry.
type Policy struct {
	AllowRefresh bool
	Persistent   bool
	Validity     time.Duration
}

// DefaultPolicy mirrors the deployment defaults: sessions survive browser
// and process restarts and expire 20 minutes after issue.
func DefaultPolicy() Policy {
	return Policy{
		AllowRefresh: true,
		Persistent:   true,
		Validity:     DefaultValidity,
	}
}

// Claims is the fixed set of attributes embedded in a session token: the
// registered JWT claims plus the identity and policy fields. The shape is a
// struct rather than a free-form map so the payload stays predictable.
type Claims struct {
	jwt.RegisteredClaims
	Username     string `json:"username"`
	Role         string `json:"role"`
	AllowRefresh bool   `json:"allow_refresh"`
	Persistent   bool   `json:"persistent"`
}

// Identity converts the claims back to the identity they were issued for.
func (c *Claims) Identity() models.Identity {
	return models.Identity{Username: c.Username, Role: c.Role}
}

// Issuer signs and verifies session tokens with an HMAC secret (HS256).
type Issuer struct {
	secret []byte
}

func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret}
}

// timeNow is a test seam.
var timeNow = time.Now

// Issue builds claims from the identity (name claim and role claim), wraps
// them with the policy, and returns the signed token string.
func (i *Issuer) Issue(identity models.Identity, policy Policy) (string, error) {
	now := timeNow().UTC()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(policy.Validity)),
		},
		Username:     identity.Username,
		Role:         identity.Role,
		AllowRefresh: policy.AllowRefresh,
		Persistent:   policy.Persistent,
	})

	return token.SignedString(i.secret)
}

// Verify decodes a presented token and returns its claims.
//
// Signature or structure failures yield common.ErrInvalidSessionToken; a
// well-signed token past its expiry yields common.ErrSessionExpired. Expiry
// is re-checked against the decoded claims so it is enforced even if the
// parsing library accepted the token.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return timeNow() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, common.ErrInvalidSessionToken
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrSessionExpired
		}
		return nil, common.ErrInvalidSessionToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidSessionToken
	}

	if claims.ExpiresAt == nil || !timeNow().Before(claims.ExpiresAt.Time) {
		return nil, common.ErrSessionExpired
	}

	return claims, nil
}
