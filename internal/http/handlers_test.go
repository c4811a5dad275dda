package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func do(t *testing.T, env *testEnv, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	env.Router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, env *testEnv, email string) (access, refresh, userID string) {
	t.Helper()
	w := do(t, env, "POST", "/api/auth/otp/send", `{"email":"`+email+`"}`, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	code := env.Pub.lastCode()
	require.Len(t, code, 6)

	w = do(t, env, "POST", "/api/auth/otp/verify", `{"email":"`+email+`","code":"`+code+`"}`, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	var tr struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		UserID  string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	require.NotEmpty(t, tr.Access)
	require.NotEmpty(t, tr.Refresh)
	return tr.Access, tr.Refresh, tr.UserID
}

func Test_OTPFlow_LoginAndProfile(t *testing.T) {
	env := newTestEnv(t, 100)

	access, _, userID := login(t, env, "john@example.com")

	// me
	w := do(t, env, "GET", "/api/auth/me", "", map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, 200, w.Code, w.Body.String())

	// profile exists with the seed balance
	w = do(t, env, "GET", "/api/profile", "", map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, 200, w.Code, w.Body.String())
	var p struct {
		ID          string  `json:"id"`
		CashBalance float64 `json:"cash_balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	require.Equal(t, userID, p.ID)
	require.Equal(t, float64(1_000_000), p.CashBalance)
}

func Test_OTPFlow_ReturningUser_SameAccount(t *testing.T) {
	env := newTestEnv(t, 100)

	_, _, first := login(t, env, "jane@example.com")
	_, _, second := login(t, env, "jane@example.com")

	require.Equal(t, first, second, "returning user must get the same account id")
	require.Equal(t, 1, env.Store.profileWrites[first], "profile seeded exactly once")

	p, _ := env.Store.GetProfile(context.Background(), first)
	require.Equal(t, float64(1_000_000), p.CashBalance, "balance untouched on re-login")
}

func Test_SendOTP_Validation(t *testing.T) {
	env := newTestEnv(t, 100)

	w := do(t, env, "POST", "/api/auth/otp/send", `{"email":""}`, nil)
	require.Equal(t, 400, w.Code)

	w = do(t, env, "POST", "/api/auth/otp/send", `{"email":"not-an-email"}`, nil)
	require.Equal(t, 400, w.Code)
}

func Test_SendOTP_RateLimited(t *testing.T) {
	env := newTestEnv(t, 2)

	do(t, env, "POST", "/api/auth/otp/send", `{"email":"rl@example.com"}`, nil)
	do(t, env, "POST", "/api/auth/otp/send", `{"email":"rl@example.com"}`, nil)
	w := do(t, env, "POST", "/api/auth/otp/send", `{"email":"rl@example.com"}`, nil)
	require.Equal(t, 429, w.Code, w.Body.String())
}

func Test_SendOTP_DispatchFailure(t *testing.T) {
	env := newTestEnv(t, 100)
	env.Pub.failWith = errors.New("broker down")

	w := do(t, env, "POST", "/api/auth/otp/send", `{"email":"x@example.com"}`, nil)
	require.Equal(t, 502, w.Code, w.Body.String())
}

func Test_VerifyOTP_WrongAndExpired(t *testing.T) {
	env := newTestEnv(t, 100)

	// nothing pending
	w := do(t, env, "POST", "/api/auth/otp/verify", `{"email":"a@b.com","code":"123456"}`, nil)
	require.Equal(t, 410, w.Code, w.Body.String())

	// wrong code keeps the pending state
	w = do(t, env, "POST", "/api/auth/otp/send", `{"email":"a@b.com"}`, nil)
	require.Equal(t, 200, w.Code)
	w = do(t, env, "POST", "/api/auth/otp/verify", `{"email":"a@b.com","code":"000000"}`, nil)
	require.Equal(t, 401, w.Code, w.Body.String())

	// the real code still verifies after one miss
	code := env.Pub.lastCode()
	w = do(t, env, "POST", "/api/auth/otp/verify", `{"email":"a@b.com","code":"`+code+`"}`, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
}

func Test_Refresh_RotateAndLogout(t *testing.T) {
	env := newTestEnv(t, 100)

	_, refresh, _ := login(t, env, "rot@example.com")

	w := do(t, env, "POST", "/api/auth/refresh", `{"refresh":"`+refresh+`"}`, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	var r1 struct{ Access, Refresh string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r1))
	require.NotEmpty(t, r1.Refresh)

	// rotated: the old token is dead
	w = do(t, env, "POST", "/api/auth/refresh", `{"refresh":"`+refresh+`"}`, nil)
	require.Equal(t, 401, w.Code)

	// logout kills the new one
	w = do(t, env, "POST", "/api/auth/logout", `{"refresh":"`+r1.Refresh+`"}`, nil)
	require.Equal(t, 204, w.Code)
	w = do(t, env, "POST", "/api/auth/refresh", `{"refresh":"`+r1.Refresh+`"}`, nil)
	require.Equal(t, 401, w.Code)
}

func Test_Trade_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, 100)

	w := do(t, env, "POST", "/api/trade/buy", `{"symbol":"AAPL","quantity":"1"}`, nil)
	require.Equal(t, 401, w.Code)
}

func Test_Trade_ProxiesToEngine(t *testing.T) {
	env := newTestEnv(t, 100)
	access, _, userID := login(t, env, "trader@example.com")

	var got struct {
		UserID   string `json:"user_id"`
		Symbol   string `json:"symbol"`
		Quantity int    `json:"quantity"`
	}
	env.Backend.set(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		require.Equal(t, "/buy", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Bought 10 shares of AAPL!"})
	})

	w := do(t, env, "POST", "/api/trade/buy", `{"symbol":"aapl","quantity":"10"}`,
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Equal(t, userID, got.UserID, "trades run as the authenticated user")
	require.Equal(t, "AAPL", got.Symbol)
	require.Equal(t, 10, got.Quantity)
}

func Test_Trade_EngineErrorPassesThrough(t *testing.T) {
	env := newTestEnv(t, 100)
	access, _, _ := login(t, env, "poor@example.com")

	env.Backend.set(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(400)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Insufficient balance."})
	})

	w := do(t, env, "POST", "/api/trade/buy", `{"symbol":"AAPL","quantity":"99999"}`,
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, 400, w.Code)
	require.Contains(t, w.Body.String(), "Insufficient balance.")
}

func Test_Trade_BadQuantity(t *testing.T) {
	env := newTestEnv(t, 100)
	access, _, _ := login(t, env, "typo@example.com")

	w := do(t, env, "POST", "/api/trade/buy", `{"symbol":"AAPL","quantity":"ten"}`,
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, 400, w.Code, w.Body.String())
}

func Test_CreateFD(t *testing.T) {
	env := newTestEnv(t, 100)
	access, _, userID := login(t, env, "saver@example.com")

	var got struct {
		UserID         string  `json:"user_id"`
		Amount         float64 `json:"amount"`
		DurationMonths int     `json:"duration_months"`
	}
	env.Backend.set(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		require.Equal(t, "/create_fd", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "FD created successfully!"})
	})

	w := do(t, env, "POST", "/api/fd", `{"amount":"500.5","duration_months":"6"}`,
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Equal(t, userID, got.UserID)
	require.Equal(t, 500.5, got.Amount)
	require.Equal(t, 6, got.DurationMonths)
}
