// Package auth issues and checks the JWTs used by admins, dashboards and
// kiosk devices.
package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

type ctxKey int

// Key is used to store and retrieve Claims from a context.Context.
const Key ctxKey = 1

const (
	RoleAdmin     = "ADMIN"
	RoleKiosk     = "KIOSK"
	RoleDashboard = "DASHBOARD"
)

// Roles lists every role an account may hold.
var Roles = []string{RoleAdmin, RoleKiosk, RoleDashboard}

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
	TokenMedia   = "media"
)

const (
	AccessTTL  = 24 * time.Hour
	RefreshTTL = 7 * 24 * time.Hour
	MediaTTL   = 15 * time.Minute
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenType    = errors.New("unexpected token type")
	ErrTokenPath    = errors.New("token was issued for another file")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	UserId int    `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.StandardClaims
}

// Authorized returns true if the claims has at least one of the provided
// roles.
func (c Claims) Authorized(roles ...string) bool {
	for _, has := range roles {
		if has == c.Role {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	return Claims{Role: role}.Authorized(Roles...)
}

// Auth signs and validates HS256 tokens with one shared key.
type Auth struct {
	key []byte
	now func() time.Time
}

func New(key string) (*Auth, error) {
	if key == "" {
		return nil, errors.New("empty jwt key")
	}
	return &Auth{key: []byte(key), now: time.Now}, nil
}

// GenerateTokens returns a new access and refresh token pair.
func (a *Auth) GenerateTokens(userID int, role string) (string, string, error) {
	access, err := a.sign(userID, role, TokenAccess, AccessTTL)
	if err != nil {
		return "", "", errors.Wrap(err, "signing access token")
	}

	refresh, err := a.sign(userID, role, TokenRefresh, RefreshTTL)
	if err != nil {
		return "", "", errors.Wrap(err, "signing refresh token")
	}

	return access, refresh, nil
}

func (a *Auth) sign(userID int, role, typ string, ttl time.Duration) (string, error) {
	now := a.now()

	claims := Claims{
		UserId: userID,
		Role:   role,
		Type:   typ,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

func (a *Auth) parse(tokenStr string) (Claims, error) {
	var claims Claims

	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.key, nil
	}

	token, err := jwt.ParseWithClaims(tokenStr, &claims, keyFunc)
	if err != nil {
		return Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// ValidateToken checks an access token and returns its claims.
func (a *Auth) ValidateToken(tokenStr string) (Claims, error) {
	claims, err := a.parse(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != TokenAccess {
		return Claims{}, ErrTokenType
	}
	return claims, nil
}

// Refresh checks a refresh token and issues a new pair for the same
// account.
func (a *Auth) Refresh(refreshToken string) (string, string, error) {
	claims, err := a.parse(refreshToken)
	if err != nil {
		return "", "", err
	}
	if claims.Type != TokenRefresh {
		return "", "", ErrTokenType
	}

	return a.GenerateTokens(claims.UserId, claims.Role)
}

// MediaToken returns a short lived token that opens one file under the
// media dir, so downloads work as plain links.
func (a *Auth) MediaToken(userID int, path string) (string, error) {
	now := a.now()

	claims := Claims{
		UserId: userID,
		Type:   TokenMedia,
		StandardClaims: jwt.StandardClaims{
			Subject:   path,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(MediaTTL).Unix(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

// ValidateMediaToken checks that tokenStr is a media token for path.
func (a *Auth) ValidateMediaToken(tokenStr, path string) error {
	claims, err := a.parse(tokenStr)
	if err != nil {
		return err
	}
	if claims.Type != TokenMedia {
		return ErrTokenType
	}
	if claims.Subject != path {
		return ErrTokenPath
	}
	return nil
}
