package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// signerTokenBytes gives signer tokens 128 bits of entropy.
const signerTokenBytes = 16

// NewSignerToken returns a fresh capability token for the signer link (32 hex chars).
func NewSignerToken() (string, error) {
	b := make([]byte, signerTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SignerTokenEqual compares a presented signer token with the stored one in constant time.
func SignerTokenEqual(presented, stored string) bool {
	if presented == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

// CreatorClaims holds the claims of a creator access token issued by the identity provider.
type CreatorClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Creator is the authenticated creator extracted from a valid access token.
type Creator struct {
	ID    string
	Email string
}

// CreatorTokenValidator validates HS256 creator access tokens against a shared secret.
type CreatorTokenValidator struct {
	secret []byte
	issuer string
}

// NewCreatorTokenValidator returns a validator for tokens signed with secret. When issuer is
// non-empty the iss claim must match it.
func NewCreatorTokenValidator(secret, issuer string) *CreatorTokenValidator {
	return &CreatorTokenValidator{secret: []byte(secret), issuer: issuer}
}

// Validate parses tokenString (signature, exp, iss) and returns the creator identity.
func (v *CreatorTokenValidator) Validate(tokenString string) (Creator, error) {
	if len(v.secret) == 0 {
		return Creator{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &CreatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Creator{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*CreatorClaims)
	if !ok || !token.Valid {
		return Creator{}, ErrInvalidToken
	}
	email := strings.TrimSpace(strings.ToLower(claims.Email))
	if claims.Subject == "" || email == "" {
		return Creator{}, ErrInvalidToken
	}
	return Creator{ID: claims.Subject, Email: email}, nil
}

// IssueCreatorToken signs a creator token. Used by tests and the seed command; production tokens
// come from the identity provider.
func IssueCreatorToken(secret, issuer string, claims CreatorClaims) (string, error) {
	if issuer != "" && claims.Issuer == "" {
		claims.Issuer = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
