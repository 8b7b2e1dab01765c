package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/text/language"

	"github.com/hogarlabs/despensa/internal/auth"
	"github.com/hogarlabs/despensa/internal/config"
	"github.com/hogarlabs/despensa/internal/database"
	"github.com/hogarlabs/despensa/internal/logging"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.Open(t.TempDir() + "/despensa_test.db")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Port:           "0",
		IdentitySecret: testSecret,
		SessionTTL:     time.Hour,
		Locale:         language.Spanish,
		LogLevel:       "error",
		LogFormat:      "text",
	}
	verifier, err := auth.NewVerifier(cfg.IdentitySecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	srv := New(db, cfg, verifier, logging.Setup(cfg.LogLevel, cfg.LogFormat))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func identityToken(t *testing.T, uid string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, bearer string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

type signInResponse struct {
	Token  string `json:"token"`
	Status struct {
		HouseholdID string `json:"household_id"`
		InviteCode  string `json:"invite_code"`
		NeedsChoice bool   `json:"needs_choice"`
		Migration   *struct {
			Success bool `json:"success"`
		} `json:"migration"`
	} `json:"status"`
}

func signIn(t *testing.T, ts *httptest.Server, uid string) signInResponse {
	t.Helper()
	var out signInResponse
	resp := doJSON(t, ts, "POST", "/auth/session", "", map[string]string{"token": identityToken(t, uid)}, &out)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("sign in status = %d, want 201", resp.StatusCode)
	}
	if out.Token == "" || out.Status.HouseholdID == "" {
		t.Fatalf("incomplete sign-in response: %+v", out)
	}
	return out
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	var out map[string]string
	resp := doJSON(t, ts, "GET", "/health", "", nil, &out)
	if resp.StatusCode != http.StatusOK || out["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, out)
	}
}

func TestSignInFlow(t *testing.T) {
	ts := setupServer(t)

	first := signIn(t, ts, "u-1")
	if first.Status.NeedsChoice {
		t.Error("first sign-in should not require a choice")
	}
	if first.Status.Migration == nil || !first.Status.Migration.Success {
		t.Errorf("migration result = %+v, want success", first.Status.Migration)
	}

	// A second fresh sign-in resolves the same household but arms the gate.
	second := signIn(t, ts, "u-1")
	if second.Status.HouseholdID != first.Status.HouseholdID {
		t.Errorf("household changed: %s vs %s", second.Status.HouseholdID, first.Status.HouseholdID)
	}
	if !second.Status.NeedsChoice {
		t.Error("repeat sign-in should require confirmation")
	}

	var confirm struct {
		Status struct {
			NeedsChoice bool `json:"needs_choice"`
		} `json:"status"`
	}
	resp := doJSON(t, ts, "POST", "/api/household/confirm", second.Token, nil, &confirm)
	if resp.StatusCode != http.StatusOK || confirm.Status.NeedsChoice {
		t.Errorf("confirm = %d %+v", resp.StatusCode, confirm)
	}
}

func TestSignInRejectsBadToken(t *testing.T) {
	ts := setupServer(t)

	resp := doJSON(t, ts, "POST", "/auth/session", "", map[string]string{"token": "garbage"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSignInRejectsUnknownJoinCode(t *testing.T) {
	ts := setupServer(t)

	resp := doJSON(t, ts, "POST", "/auth/session", "", map[string]string{
		"token":     identityToken(t, "u-2"),
		"join_code": "ZZZZZZ",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestInventoryRequiresSession(t *testing.T) {
	ts := setupServer(t)

	resp := doJSON(t, ts, "GET", "/api/categories", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestInventoryLifecycle(t *testing.T) {
	ts := setupServer(t)
	session := signIn(t, ts, "u-3")

	var categories []map[string]any
	resp := doJSON(t, ts, "GET", "/api/categories", session.Token, nil, &categories)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list categories = %d", resp.StatusCode)
	}
	if len(categories) != 5 {
		t.Fatalf("starter categories = %d, want 5", len(categories))
	}

	var category map[string]any
	resp = doJSON(t, ts, "POST", "/api/categories", session.Token, map[string]string{"name": "Mascotas"}, &category)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create category = %d", resp.StatusCode)
	}
	categoryID := category["id"].(string)

	var product map[string]any
	resp = doJSON(t, ts, "POST", "/api/categories/"+categoryID+"/products", session.Token, map[string]any{
		"name":      "Pienso",
		"quantity":  "3",
		"threshold": 1,
	}, &product)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product = %d", resp.StatusCode)
	}
	productID := product["id"].(string)
	if product["quantity"].(float64) != 3 {
		t.Errorf("quantity = %v, want coerced 3", product["quantity"])
	}

	// Drain the stock; the product should appear on the list as urgent.
	resp = doJSON(t, ts, "PUT", "/api/products/"+productID+"/quantity", session.Token, map[string]any{"quantity": 0}, &product)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set quantity = %d", resp.StatusCode)
	}

	var list []map[string]any
	resp = doJSON(t, ts, "GET", "/api/shopping-list", session.Token, nil, &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("shopping list = %d", resp.StatusCode)
	}
	if len(list) != 1 || list[0]["name"] != "Pienso" || list[0]["urgent"] != true {
		t.Fatalf("shopping list = %v, want urgent Pienso", list)
	}

	// Restock over the threshold and it drops off.
	resp = doJSON(t, ts, "PATCH", "/api/products/"+productID, session.Token, map[string]any{"quantity": 8}, &product)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch = %d", resp.StatusCode)
	}
	resp = doJSON(t, ts, "GET", "/api/shopping-list", session.Token, nil, &list)
	if resp.StatusCode != http.StatusOK || len(list) != 0 {
		t.Fatalf("shopping list after restock = %d %v, want empty", resp.StatusCode, list)
	}

	var cascade map[string]any
	resp = doJSON(t, ts, "DELETE", "/api/categories/"+categoryID, session.Token, nil, &cascade)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete category = %d", resp.StatusCode)
	}
	if cascade["products_deleted"].(float64) != 1 {
		t.Errorf("products_deleted = %v, want 1", cascade["products_deleted"])
	}

	resp = doJSON(t, ts, "GET", "/api/categories/"+categoryID+"/products", session.Token, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("list products of deleted category = %d, want 404", resp.StatusCode)
	}
}

func TestJoinHouseholdByCode(t *testing.T) {
	ts := setupServer(t)

	owner := signIn(t, ts, "owner")
	guest := signIn(t, ts, "guest")

	var joined map[string]any
	resp := doJSON(t, ts, "POST", "/api/household/join", guest.Token, map[string]string{"code": owner.Status.InviteCode}, &joined)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join = %d", resp.StatusCode)
	}
	if joined["id"] != owner.Status.HouseholdID {
		t.Errorf("joined household = %v, want %s", joined["id"], owner.Status.HouseholdID)
	}

	var overview struct {
		Status struct {
			HouseholdID string `json:"household_id"`
		} `json:"status"`
		Households []map[string]any `json:"households"`
	}
	resp = doJSON(t, ts, "GET", "/api/household", guest.Token, nil, &overview)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get household = %d", resp.StatusCode)
	}
	if overview.Status.HouseholdID != owner.Status.HouseholdID {
		t.Errorf("active household = %s, want %s", overview.Status.HouseholdID, owner.Status.HouseholdID)
	}
	if len(overview.Households) != 2 {
		t.Errorf("membership set = %d, want 2", len(overview.Households))
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts := setupServer(t)
	session := signIn(t, ts, "u-4")

	resp := doJSON(t, ts, "DELETE", "/auth/session", session.Token, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout = %d", resp.StatusCode)
	}

	resp = doJSON(t, ts, "GET", "/api/categories", session.Token, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("after logout = %d, want 401", resp.StatusCode)
	}
}

func TestCreateAdditionalHousehold(t *testing.T) {
	ts := setupServer(t)
	session := signIn(t, ts, "u-5")

	var created map[string]any
	resp := doJSON(t, ts, "POST", "/api/household", session.Token, map[string]string{"name": "Casa del Pueblo"}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create household = %d", resp.StatusCode)
	}
	if created["id"] == session.Status.HouseholdID {
		t.Error("create must allocate a new household, not reuse the active one")
	}

	var overview struct {
		Status struct {
			HouseholdID string `json:"household_id"`
		} `json:"status"`
		Households []map[string]any `json:"households"`
	}
	if resp := doJSON(t, ts, "GET", "/api/household", session.Token, nil, &overview); resp.StatusCode != http.StatusOK {
		t.Fatalf("get household = %d", resp.StatusCode)
	}
	if overview.Status.HouseholdID != created["id"] {
		t.Errorf("active household = %s, want the new one", overview.Status.HouseholdID)
	}
	if len(overview.Households) != 2 {
		t.Errorf("membership set = %d, want 2", len(overview.Households))
	}
}

func TestShoppingListConcurrentReads(t *testing.T) {
	ts := setupServer(t)
	session := signIn(t, ts, "u-6")

	var categories []map[string]any
	if resp := doJSON(t, ts, "GET", "/api/categories", session.Token, nil, &categories); resp.StatusCode != http.StatusOK {
		t.Fatalf("list categories = %d", resp.StatusCode)
	}
	categoryID := categories[0]["id"].(string)

	// Every product drained to zero, so the whole set lands on the list
	// and the sort has to break quantity ties on names.
	names := []string{"Azúcar", "Arroz", "Avena", "Aceite", "Atún"}
	for _, name := range names {
		resp := doJSON(t, ts, "POST", "/api/categories/"+categoryID+"/products", session.Token, map[string]any{
			"name":     name,
			"quantity": 0,
		}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %s = %d", name, resp.StatusCode)
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest("GET", ts.URL+"/api/shopping-list", nil)
			if err != nil {
				errCh <- err
				return
			}
			req.Header.Set("Authorization", "Bearer "+session.Token)
			resp, err := ts.Client().Do(req)
			if err != nil {
				errCh <- err
				return
			}
			var list []map[string]any
			err = json.NewDecoder(resp.Body).Decode(&list)
			resp.Body.Close()
			if err != nil {
				errCh <- err
				return
			}
			if resp.StatusCode != http.StatusOK || len(list) != len(names) {
				errCh <- fmt.Errorf("shopping list = %d with %d items, want 200 with %d", resp.StatusCode, len(list), len(names))
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}
}

func TestSessionRateLimit(t *testing.T) {
	ts := setupServer(t)

	// The public sign-in endpoint allows 10 requests per IP per window.
	var last int
	for i := 0; i < 11; i++ {
		resp := doJSON(t, ts, "POST", "/auth/session", "", map[string]string{"token": identityToken(t, fmt.Sprintf("rl-%d", i))}, nil)
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("11th request = %d, want 429", last)
	}
}
