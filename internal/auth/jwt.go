package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portal-booking/internal/models"
)

type Manager struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
}

// Claims carry the role plus the contact details used to pre-fill booking forms.
type Claims struct {
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

func NewManager(secret string, accessTTL time.Duration, issuer string) *Manager {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &Manager{
		Secret:    []byte(secret),
		AccessTTL: accessTTL,
		Issuer:    issuer,
	}
}

func (m *Manager) sign(claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.Issuer,
		Subject:   claims.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.AccessTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
}

func (m *Manager) NewAccessToken(role string) (string, error) {
	return m.sign(Claims{Role: role})
}

func (m *Manager) NewUserToken(profile models.Profile) (string, error) {
	return m.sign(Claims{
		Role:  models.UserRoleUser,
		Name:  profile.Name,
		Email: profile.Email,
		Phone: profile.Phone,
	})
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithIssuer(m.Issuer))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Profile returns the contact details embedded in the token, or nil when it carries none.
func (c *Claims) Profile() *models.Profile {
	if c == nil || (c.Name == "" && c.Email == "" && c.Phone == "") {
		return nil
	}
	return &models.Profile{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
