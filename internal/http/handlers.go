package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/niveshmitr/gateway/internal/domain"
	"github.com/niveshmitr/gateway/internal/engine"
	"github.com/niveshmitr/gateway/internal/log"
	"github.com/niveshmitr/gateway/internal/metrics"
	"github.com/niveshmitr/gateway/internal/oauth"
	"github.com/niveshmitr/gateway/internal/queue"
	"github.com/niveshmitr/gateway/internal/repo"
	"github.com/niveshmitr/gateway/internal/security"
)

// Store is the persistent-state surface the handlers need; *repo.Store
// implements it, tests plug in memory fakes.
type Store interface {
	Ping(ctx context.Context) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpsertGoogleUser(ctx context.Context, email, sub string) (*domain.User, error)
	EnsureProfile(ctx context.Context, accountID, email string) (*domain.Profile, error)
	GetProfile(ctx context.Context, accountID string) (*domain.Profile, error)
	SaveRefresh(ctx context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) error
	FindValidRefresh(ctx context.Context, plain string) (*repo.RefreshToken, error)
	RevokeRefresh(ctx context.Context, plain string) error
}

// OTPStore holds pending verifications.
type OTPStore interface {
	Put(ctx context.Context, email, code string) error
	Verify(ctx context.Context, email, entered string) error
}

// Limiter caps OTP dispatch frequency per key.
type Limiter interface {
	AllowOTPSend(ctx context.Context, key string, perMin int) bool
}

// Resolver turns a verified email into a stable account id.
type Resolver interface {
	Resolve(ctx context.Context, email string) (string, error)
}

// Engine is the outbound trading API surface.
type Engine interface {
	PlaceTrade(ctx context.Context, kind engine.TradeKind, userID, symbol, quantity string) (*engine.Result, error)
	CreateFixedDeposit(ctx context.Context, userID, amount, durationMonths string) (*engine.Result, error)
	GetQuote(ctx context.Context, symbol string) (*engine.Quote, error)
}

type Handler struct {
	Store      Store
	OTP        OTPStore
	Limiter    Limiter
	Linker     Resolver
	Engine     Engine
	Google     *oauth.GoogleOAuth
	Events     queue.Publisher
	JWTSecret  string
	RefreshTTL time.Duration
	Exchange   string
	OTPPerMin  int
	AccessTTL  time.Duration
}

func NewHandler(store Store, otp OTPStore, lim Limiter, linker Resolver, eng Engine,
	google *oauth.GoogleOAuth, pub queue.Publisher, jwtSecret string, refreshDays, otpPerMin int, exchange string) *Handler {
	return &Handler{
		Store:      store,
		OTP:        otp,
		Limiter:    lim,
		Linker:     linker,
		Engine:     eng,
		Google:     google,
		Events:     pub,
		JWTSecret:  jwtSecret,
		RefreshTTL: time.Duration(refreshDays) * 24 * time.Hour,
		Exchange:   exchange,
		OTPPerMin:  otpPerMin,
		AccessTTL:  15 * time.Minute,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type sendOTPReq struct {
	Email string `json:"email"`
}

// SendOTP godoc
// @Summary Request a one-time code by mail
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body sendOTPReq true "email"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/auth/otp/send [post]
func (h *Handler) SendOTP(c *gin.Context) {
	var in sendOTPReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email required"})
		return
	}
	if !h.Limiter.AllowOTPSend(c.Request.Context(), email, h.OTPPerMin) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many codes requested, try again later"})
		return
	}

	code, err := security.GenerateOTP()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "code generation failed"})
		return
	}
	if err := h.OTP.Put(c.Request.Context(), email, code); err != nil {
		log.WithDD(c.Request.Context(), log.L).Error("otp store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store code"})
		return
	}

	// dispatch failure must surface to the user; the pending code stays so a
	// later re-send simply overwrites it
	if err := h.Events.Publish(c.Request.Context(), h.Exchange, queue.KeyOTPRequested,
		queue.OTPRequested{Email: email, Code: code}, reqID(c)); err != nil {
		log.WithDD(c.Request.Context(), log.L).Error("otp dispatch failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send code"})
		return
	}
	metrics.OTPSent.Inc()

	c.JSON(http.StatusOK, gin.H{"message": "code sent"})
}

type verifyOTPReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type tokenResp struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	UserID  string `json:"user_id"`
}

// VerifyOTP godoc
// @Summary Verify a one-time code and log in
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body verifyOTPReq true "email + code"
// @Success 200 {object} tokenResp
// @Failure 401 {object} map[string]string
// @Failure 410 {object} map[string]string
// @Router /api/auth/otp/verify [post]
func (h *Handler) VerifyOTP(c *gin.Context) {
	var in verifyOTPReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := normalizeEmail(in.Email)
	code := strings.TrimSpace(in.Code)
	if email == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and code required"})
		return
	}

	switch err := h.OTP.Verify(c.Request.Context(), email, code); {
	case err == nil:
	case errors.Is(err, repo.ErrOTPMismatch):
		metrics.OTPVerifications.WithLabelValues("mismatch").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	case errors.Is(err, repo.ErrOTPLocked):
		metrics.OTPVerifications.WithLabelValues("locked").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many wrong attempts, request a new code"})
		return
	case errors.Is(err, repo.ErrOTPExpired):
		metrics.OTPVerifications.WithLabelValues("expired").Inc()
		c.JSON(http.StatusGone, gin.H{"error": "code expired, request a new one"})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	accountID, err := h.Linker.Resolve(c.Request.Context(), email)
	if err != nil {
		log.WithDD(c.Request.Context(), log.L).Error("identity resolution failed",
			zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	metrics.OTPVerifications.WithLabelValues("ok").Inc()

	if _, err := h.Store.EnsureProfile(c.Request.Context(), accountID, email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile bootstrap failed"})
		return
	}

	resp, err := h.issueTokens(c.Request.Context(), accountID, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	go h.Events.Publish(context.WithoutCancel(c.Request.Context()), h.Exchange, queue.KeyUserLoggedIn,
		queue.UserLoggedIn{UserID: accountID, Email: email, Provider: "otp"}, reqID(c))

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) issueTokens(ctx context.Context, accountID, email string) (*tokenResp, error) {
	access, err := security.MakeAccess(h.JWTSecret, accountID, email, h.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := security.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, err
	}
	if err := h.Store.SaveRefresh(ctx, oid, refresh, h.RefreshTTL); err != nil {
		return nil, err
	}
	return &tokenResp{Access: access, Refresh: refresh, UserID: accountID}, nil
}

// GoogleLogin redirects the browser into the Google consent flow.
func (h *Handler) GoogleLogin(c *gin.Context) {
	state := h.Google.MakeState(uuid.NewString())
	c.Redirect(http.StatusFound, h.Google.AuthURL(state))
}

// GoogleCallback completes the OAuth code exchange and logs the user in.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if !h.Google.VerifyState(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	gu, err := h.Google.ExchangeAndVerify(c.Request.Context(), code)
	if err != nil {
		log.WithDD(c.Request.Context(), log.L).Error("google exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google login failed"})
		return
	}

	u, err := h.Store.UpsertGoogleUser(c.Request.Context(), normalizeEmail(gu.Email), gu.Sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "account link failed"})
		return
	}
	accountID := u.ID.Hex()
	if _, err := h.Store.EnsureProfile(c.Request.Context(), accountID, u.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile bootstrap failed"})
		return
	}

	resp, err := h.issueTokens(c.Request.Context(), accountID, u.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	go h.Events.Publish(context.WithoutCancel(c.Request.Context()), h.Exchange, queue.KeyUserLoggedIn,
		queue.UserLoggedIn{UserID: accountID, Email: u.Email, Provider: "google"}, reqID(c))

	c.JSON(http.StatusOK, resp)
}

type refreshReq struct {
	Refresh string `json:"refresh"`
}

// Refresh rotates the refresh token and mints a fresh access token.
func (h *Handler) Refresh(c *gin.Context) {
	var in refreshReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rt, err := h.Store.FindValidRefresh(c.Request.Context(), in.Refresh)
	if err != nil || rt == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh"})
		return
	}
	u, err := h.Store.FindUserByID(c.Request.Context(), rt.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	if err := h.Store.RevokeRefresh(c.Request.Context(), in.Refresh); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rotation failed"})
		return
	}
	resp, err := h.issueTokens(c.Request.Context(), u.ID.Hex(), u.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type logoutReq struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) Logout(c *gin.Context) {
	var in logoutReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Store.RevokeRefresh(c.Request.Context(), in.Refresh); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated identity.
func (h *Handler) Me(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"id": u.UID, "email": u.Email})
}

// Profile returns the authenticated user's wallet document.
func (h *Handler) Profile(c *gin.Context) {
	u := currentUser(c)
	p, err := h.Store.GetProfile(c.Request.Context(), u.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile read failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
