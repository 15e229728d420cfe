package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// Whop signs user tokens with ES256 against this published public key.
const whopPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAErz8a8vxvexHC0TLT91g7llOdDOsN
uYiGEfic4Qhni+HMfRBuUphOh7F3k8QgwZc9UlL0AHmyYqtbhL9NuJes6w==
-----END PUBLIC KEY-----`

const (
	// UserTokenHeader carries the Whop-issued user JWT on every request made
	// from inside a Whop experience iframe.
	UserTokenHeader = "x-whop-user-token"

	whopTokenIssuer = "urn:whopcom:exp-proxy"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the caller identity resolved from the request.
type Identity struct {
	WhopUserID   string
	ExperienceID string
}

// Resolver turns an incoming request into a caller identity. The concrete
// strategy is picked once at process start.
type Resolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// TokenResolver verifies the Whop user token and is the production strategy.
type TokenResolver struct {
	publicKey *ecdsa.PublicKey
}

func NewTokenResolver() (*TokenResolver, error) {
	return NewTokenResolverWithKey(whopPublicKeyPEM)
}

// NewTokenResolverWithKey builds a resolver against a caller-supplied PEM
// public key. Production uses the published Whop key.
func NewTokenResolverWithKey(publicKeyPEM string) (*TokenResolver, error) {
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse whop public key: %w", err)
	}
	return &TokenResolver{publicKey: key}, nil
}

func (t *TokenResolver) Resolve(r *http.Request) (Identity, error) {
	raw := r.Header.Get(UserTokenHeader)
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: no token provided", ErrUnauthorized)
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.publicKey, nil
	},
		jwt.WithValidMethods([]string{"ES256"}),
		jwt.WithIssuer(whopTokenIssuer),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: unexpected claims type", ErrUnauthorized)
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: token missing user id", ErrUnauthorized)
	}
	experienceID := "unknown"
	if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 && aud[0] != "" {
		experienceID = aud[0]
	}

	return Identity{WhopUserID: sub, ExperienceID: experienceID}, nil
}

// StaticResolver substitutes a fixed identity when the token header is absent
// and is only wired when DEV_USER_ID is configured. Requests that do carry a
// token are still verified.
type StaticResolver struct {
	identity Identity
	verifier *TokenResolver
}

func NewStaticResolver(userID, experienceID string, verifier *TokenResolver) *StaticResolver {
	return &StaticResolver{
		identity: Identity{WhopUserID: userID, ExperienceID: experienceID},
		verifier: verifier,
	}
}

func (s *StaticResolver) Resolve(r *http.Request) (Identity, error) {
	if r.Header.Get(UserTokenHeader) == "" {
		return s.identity, nil
	}
	return s.verifier.Resolve(r)
}
