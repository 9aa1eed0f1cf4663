package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"trello-cloney/domain"
)

// DefaultJWKSCacheTTL is how long a verified signing key is reused before the
// JWKS is consulted again.
const DefaultJWKSCacheTTL = 15 * time.Minute

// AuthConfig configures token validation. When SharedSecret is set tokens are
// verified with HS256 against it; otherwise RS256 keys come from JWKS.
type AuthConfig struct {
	JWKS         *keyfunc.JWKS
	Audience     string
	Issuer       string
	SharedSecret []byte
	KeyCacheTTL  time.Duration
}

// Auth validates incoming JWT tokens.
type Auth struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	secret   []byte

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
	now         func() time.Time
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates a new Auth instance.
func NewAuth(cfg AuthConfig) *Auth {
	a := &Auth{
		jwks:        cfg.JWKS,
		audience:    cfg.Audience,
		issuer:      cfg.Issuer,
		secret:      cfg.SharedSecret,
		keyCacheTTL: cfg.KeyCacheTTL,
		now:         time.Now,
	}
	if len(a.secret) > 0 {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	}
	return a
}

// UserIDFromAuthHeader extracts the user identifier from the Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	claims, err := a.claimsFromAuthHeader(h)
	if err != nil {
		return "", err
	}
	return claims.subject()
}

// SessionFromAuthHeader resolves the viewer's session. Tokens that are
// missing or fail validation produce domain.SignedOut; missing profile
// claims leave the matching fields empty.
func (a *Auth) SessionFromAuthHeader(h string) domain.Session {
	claims, err := a.claimsFromAuthHeader(h)
	if err != nil {
		return domain.SignedOut{}
	}
	sub, err := claims.subject()
	if err != nil {
		return domain.SignedOut{}
	}
	name, _ := claims.MapClaims["name"].(string)
	picture, _ := claims.MapClaims["picture"].(string)
	return domain.SignedIn{UserID: sub, Name: name, Image: picture}
}

type tokenClaims struct {
	jwt.MapClaims
}

func (c tokenClaims) subject() (string, error) {
	sub, ok := c.MapClaims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func (a *Auth) claimsFromAuthHeader(h string) (tokenClaims, error) {
	token, err := bearerToken(h)
	if err != nil {
		return tokenClaims{}, err
	}

	parsed, err := a.parser.Parse(token, a.keyFor)
	if err != nil {
		return tokenClaims{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return tokenClaims{}, errors.New("invalid claims")
	}

	// One minute of leeway for clock skew between issuer and server.
	now := a.now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return tokenClaims{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return tokenClaims{}, errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return tokenClaims{}, errors.New("token used before issued")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return tokenClaims{}, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return tokenClaims{}, errors.New("invalid issuer")
	}
	return tokenClaims{claims}, nil
}

func (a *Auth) keyFor(token *jwt.Token) (any, error) {
	if len(a.secret) > 0 {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}
	if a.jwks == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if a.now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.jwks.Keyfunc(token)
	if err != nil {
		return nil, err
	}
	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: a.now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
