package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"peritagem/internal/model"
	"peritagem/internal/repository"
	"peritagem/internal/service"
	"peritagem/pkg/response"
)

const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"

	AccessTokenCookie = "access_token"
	accessTokenMaxAge = 3600 * 24
)

var (
	profileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peritagem_profile_cache_hits_total",
		Help: "Profile status lookups served from the cache",
	})
	profileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peritagem_profile_cache_misses_total",
		Help: "Profile status lookups that hit the store",
	})
)

// ProfileReader loads the current state of a profile
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

type cachedProfile struct {
	role   model.Role
	status model.ProfileStatus
}

// Auth validates access tokens and re-checks the caller's profile on every
// request. Profile state is cached for a short TTL.
type Auth struct {
	secret   []byte
	profiles ProfileReader
	cache    *expirable.LRU[string, cachedProfile]
	timeout  time.Duration
	log      *zap.Logger
}

func NewAuth(secret []byte, profiles ProfileReader, cacheSize int, ttl, timeout time.Duration, log *zap.Logger) *Auth {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{
		secret:   secret,
		profiles: profiles,
		cache:    expirable.NewLRU[string, cachedProfile](cacheSize, nil, ttl),
		timeout:  timeout,
		log:      log,
	}
}

// Invalidate drops the cached state of a profile
func (a *Auth) Invalidate(id string) {
	a.cache.Remove(id)
}

// SetTokenCookies sets the access token as an HttpOnly cookie
func SetTokenCookies(c *gin.Context, accessToken string, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, accessToken, accessTokenMaxAge, "/", "", secure, true)
}

// ClearTokenCookies removes the access token cookie
func ClearTokenCookies(c *gin.Context, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
}

// TokenFromRequest reads the access token from the cookie, falling back to the
// Authorization header
func TokenFromRequest(c *gin.Context) (string, error) {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token, nil
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization is missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("Invalid authorization format. Expected 'Bearer <token>'")
	}
	return parts[1], nil
}

// ParseToken validates an HS256 token and returns its subject and role
func ParseToken(tokenString string, secret []byte) (string, model.Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("Invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("Invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return "", "", errors.New("Invalid token claims")
	}
	return sub, model.Role(role), nil
}

// RequireRole validates the token, loads the caller's current profile and
// checks its role against allowedRoles. Gestor always passes; no roles means
// any active profile.
func (a *Auth) RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := TokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		sub, _, err := ParseToken(tokenString, a.secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		prof, err := a.lookup(c.Request.Context(), sub)
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				a.log.Warn("profile lookup timed out", zap.String("profile_id", sub))
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication timed out"))
			case errors.Is(err, repository.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Profile not found"))
			default:
				a.log.Error("profile lookup failed", zap.String("profile_id", sub), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify profile"))
			}
			return
		}

		switch prof.status {
		case model.ProfileAtivo:
		case model.ProfileInativo:
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, service.ErrInactive.Error()))
			return
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, service.ErrAwaitingApproval.Error()))
			return
		}

		if !roleAllowed(prof.role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ContextUserID, sub)
		c.Set(ContextUserRole, prof.role)
		c.Next()
	}
}

func roleAllowed(role model.Role, allowed []model.Role) bool {
	if role == model.RoleGestor || len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func (a *Auth) lookup(ctx context.Context, id string) (cachedProfile, error) {
	if p, ok := a.cache.Get(id); ok {
		profileCacheHits.Inc()
		return p, nil
	}
	profileCacheMisses.Inc()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		p   *model.Profile
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := a.profiles.GetByID(ctx, id)
		done <- result{p, err}
	}()

	select {
	case <-ctx.Done():
		return cachedProfile{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return cachedProfile{}, r.err
		}
		entry := cachedProfile{role: r.p.Role, status: r.p.Status}
		a.cache.Add(id, entry)
		return entry, nil
	}
}

// ActorFrom returns the caller stored by RequireRole
func ActorFrom(c *gin.Context) service.Actor {
	id, _ := c.Get(ContextUserID)
	role, _ := c.Get(ContextUserRole)
	actor := service.Actor{}
	actor.ID, _ = id.(string)
	actor.Role, _ = role.(model.Role)
	return actor
}
