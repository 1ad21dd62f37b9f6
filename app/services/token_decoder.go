// Package services provides the console's outbound integrations: the dashboard REST API and token decoding
package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMalformed     = errors.New("token is malformed")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("token signature is invalid")
	ErrTokenMissingClaims = errors.New("token is missing identity claims")
)

// TokenDecoder turns a bearer token into an admin identity.
// Decoding is pure: no I/O, and the only clock read goes through now.
type TokenDecoder interface {
	Decode(token string) (*models.AdminIdentity, error)
}

// JWTTokenDecoder reads identity claims from a JWT.
//
// Claims: "id" (or "sub") is the user id, "email" the address, "name" the display name.
// When verifySecret is empty the signature is not checked, matching how the dashboard
// has always rehydrated sessions; "exp" is still honoured.
type JWTTokenDecoder struct {
	verifyKey []byte
	now       func() time.Time
}

// NewTokenDecoder creates a decoder; a non-empty verifySecret enables HMAC verification
func NewTokenDecoder(verifySecret string) *JWTTokenDecoder {
	d := &JWTTokenDecoder{now: utils.UTCNow}
	if verifySecret != "" {
		d.verifyKey = []byte(verifySecret)
	}
	return d
}

// WithClock overrides the clock used for expiry checks
func (d *JWTTokenDecoder) WithClock(now func() time.Time) *JWTTokenDecoder {
	d.now = now
	return d
}

func (d *JWTTokenDecoder) Decode(token string) (*models.AdminIdentity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, utils.BearerPrefix))
	if token == "" {
		return nil, ErrTokenMalformed
	}

	claims := jwt.MapClaims{}
	if len(d.verifyKey) > 0 {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return d.verifyKey, nil
		}, jwt.WithTimeFunc(d.now))
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				return nil, ErrTokenExpired
			case errors.Is(err, jwt.ErrTokenMalformed):
				return nil, ErrTokenMalformed
			default:
				return nil, ErrTokenInvalid
			}
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, ErrTokenMalformed
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, ErrTokenMalformed
		}
		if exp != nil && !d.now().Before(exp.Time) {
			return nil, ErrTokenExpired
		}
	}

	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (*models.AdminIdentity, error) {
	id := claimString(claims, "id")
	if id == "" {
		id = claimString(claims, "sub")
	}
	email := claimString(claims, "email")
	if id == "" || email == "" {
		return nil, ErrTokenMissingClaims
	}

	name := claimString(claims, "name")
	if name == "" {
		name = email
	}

	return &models.AdminIdentity{
		UserID:      id,
		Email:       email,
		DisplayName: name,
	}, nil
}

// claimString accepts string and numeric claims; JSON numbers arrive as float64
func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
