package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken covers anything that cannot be parsed or whose
	// signature does not match the current secret.
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken means the signature verified but the token is past its
	// expiry.
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	jwt.RegisteredClaims
}

// Issuer mints and verifies stateless bearer tokens. Tokens carry only the
// subject's username and an absolute expiry; the server keeps no session
// state.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed token asserting subject until now+ttl.
func (i *Issuer) Generate(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "clouddock",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks the signature and expiry and returns the subject.
// Expiry is judged against the local wall clock; no skew compensation.
func (i *Issuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformedToken
		}
		return i.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrMalformedToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrMalformedToken
	}

	return claims.Subject, nil
}
