package cart

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	userKeyPrefix    = "user:"
	sessionKeyPrefix = "session:"
)

// Owner is either an authenticated user or an anonymous session. Build it with
// Authenticated or Anonymous; the zero value owns nothing.
type Owner struct {
	userID  uuid.UUID
	session string
}

func Authenticated(userID uuid.UUID) Owner {
	return Owner{userID: userID}
}

func Anonymous(sessionToken string) Owner {
	return Owner{session: strings.TrimSpace(sessionToken)}
}

func (o Owner) IsAuthenticated() bool {
	return o.userID != uuid.Nil
}

func (o Owner) UserID() (uuid.UUID, bool) {
	return o.userID, o.IsAuthenticated()
}

func (o Owner) SessionToken() string {
	return o.session
}

// Key is the storage partition of the owner's lines.
func (o Owner) Key() string {
	if o.IsAuthenticated() {
		return userKeyPrefix + o.userID.String()
	}
	return sessionKeyPrefix + o.session
}

func (o Owner) String() string {
	return o.Key()
}

func (o Owner) Validate() error {
	if !o.IsAuthenticated() && o.session == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	return nil
}

func (o Owner) stamp(line *models.CartLine) {
	line.OwnerKey = o.Key()
	if o.IsAuthenticated() {
		id := o.userID
		line.UserID = &id
		line.SessionToken = nil
		return
	}
	token := o.session
	line.SessionToken = &token
	line.UserID = nil
}
