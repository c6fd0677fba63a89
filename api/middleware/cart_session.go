package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartSessionOptions configure the anonymous cart cookie.
type CartSessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// CartSession attaches the anonymous cart session to the context. Anonymous
// requests without a cookie get a fresh session token.
func CartSession(opts CartSessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	name := opts.CookieName
	if name == "" {
		name = "sf_cart_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(name); err == nil {
				token = strings.TrimSpace(cookie.Value)
			}
			_, authenticated := UserIDFromContext(r.Context())
			if token == "" && !authenticated {
				token = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    token,
					Path:     "/",
					MaxAge:   int(opts.TTL.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithCartSession(r.Context(), token)
			if logg != nil {
				ctx = logg.WithField(ctx, "cart_session", true)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
