package orders

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const guestTokenBytes = 32

// NewGuestToken returns 32 random bytes, hex encoded.
func NewGuestToken() (string, error) {
	buf := make([]byte, guestTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate guest token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateGuestToken compares in constant time. Empty stored or provided tokens never match.
func ValidateGuestToken(order *models.Order, token string) bool {
	if order == nil || order.GuestToken == nil || *order.GuestToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*order.GuestToken), []byte(token)) == 1
}

// LinkSigner issues and checks expiring order status links for guests.
type LinkSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewLinkSigner(secret, publicURL string, ttl time.Duration) (*LinkSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("guest link secret required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guest link ttl must be positive")
	}
	return &LinkSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(publicURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// TTL is how long freshly issued links stay valid.
func (s *LinkSigner) TTL() time.Duration {
	return s.ttl
}

// SignedStatusURL returns the public status URL of orderID valid until expiresAt.
func (s *LinkSigner) SignedStatusURL(orderID uuid.UUID, expiresAt time.Time) string {
	expires := strconv.FormatInt(expiresAt.Unix(), 10)
	q := url.Values{}
	q.Set("expires", expires)
	q.Set("signature", s.sign(orderID, expires))
	return fmt.Sprintf("%s/api/v1/orders/%s?%s", s.baseURL, orderID, q.Encode())
}

// IssueStatusURL signs a link expiring one TTL from now.
func (s *LinkSigner) IssueStatusURL(orderID uuid.UUID) string {
	return s.SignedStatusURL(orderID, s.now().Add(s.ttl))
}

// VerifySignedURL checks the signature over orderID|expires and rejects expired links.
func (s *LinkSigner) VerifySignedURL(orderID uuid.UUID, expires, signature string) error {
	if expires == "" || signature == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "signed link incomplete")
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "signed link malformed")
	}
	want := s.sign(orderID, expires)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "signed link invalid")
	}
	if !s.now().Before(time.Unix(unix, 0)) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "signed link expired")
	}
	return nil
}

func (s *LinkSigner) sign(orderID uuid.UUID, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID.String() + "|" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}
