package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/rmendes/authsystem/internal/otp"
)

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		Email     string     `json:"email"`
		LastLogin *time.Time `json:"lastLogin"`
	} `json:"user"`
}

func registerUser(t *testing.T, router http.Handler, mailer *fakeMailer, email, password string) {
	t.Helper()

	w := doJSON(router, http.MethodPost, "/send-otp", `{"email":"`+email+`"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("send-otp status = %d, body=%s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/verify-otp",
		`{"email":"`+email+`","password":"`+password+`","otp":"`+mailer.code()+`"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("verify-otp status = %d, body=%s", w.Code, w.Body.String())
	}
}

func adminToken(t *testing.T, router http.Handler) string {
	t.Helper()

	w := doJSON(router, http.MethodPost, "/admin-login",
		`{"email":"admin@example.com","password":"admin123"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("admin-login status = %d, body=%s", w.Code, w.Body.String())
	}

	var resp loginResponse
	mustReadJSON(t, w, &resp)

	return resp.Token
}

func TestLoginFlow(t *testing.T) {
	mailer := &fakeMailer{}
	router, _ := setupRouter(t, otp.New(2*time.Minute), mailer)

	registerUser(t, router, mailer, "a@b.com", "pw12345678")

	w := doJSON(router, http.MethodPost, "/login",
		`{"email":"a@b.com","password":"pw12345678","rememberMe":true}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body=%s", w.Code, w.Body.String())
	}

	var resp loginResponse
	mustReadJSON(t, w, &resp)

	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	if resp.User.Email != "a@b.com" {
		t.Fatalf("user email = %q", resp.User.Email)
	}

	if resp.User.LastLogin == nil {
		t.Fatal("lastLogin should be set by a successful login")
	}
}

func TestLoginUnauthorizedIsUndifferentiated(t *testing.T) {
	mailer := &fakeMailer{}
	router, _ := setupRouter(t, otp.New(2*time.Minute), mailer)

	registerUser(t, router, mailer, "a@b.com", "pw12345678")

	wrongPass := doJSON(router, http.MethodPost, "/login",
		`{"email":"a@b.com","password":"wrong-password"}`, "")
	unknownEmail := doJSON(router, http.MethodPost, "/login",
		`{"email":"nobody@b.com","password":"pw12345678"}`, "")

	if wrongPass.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d; want 401, 401", wrongPass.Code, unknownEmail.Code)
	}

	// identical code and message either way: no hint which field was
	// wrong (requestId differs per request, so compare fields, not bytes)
	var fromPass, fromEmail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	mustReadJSON(t, wrongPass, &fromPass)
	mustReadJSON(t, unknownEmail, &fromEmail)

	if fromPass.Message == "" || fromPass != fromEmail {
		t.Fatalf("responses differ:\n%s\n%s", wrongPass.Body.String(), unknownEmail.Body.String())
	}
}

func TestAdminLogin(t *testing.T) {
	mailer := &fakeMailer{}
	router, _ := setupRouter(t, otp.New(2*time.Minute), mailer)

	token := adminToken(t, router)

	w := doJSON(router, http.MethodPost, "/verify-admin-token", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("verify-admin-token status = %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Valid bool `json:"valid"`
	}
	mustReadJSON(t, w, &resp)

	if !resp.Valid {
		t.Fatal("expected valid=true")
	}

	// bad credentials
	w = doJSON(router, http.MethodPost, "/admin-login",
		`{"email":"admin@example.com","password":"nope-nope"}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad admin login status = %d, want 401", w.Code)
	}
}

func TestAdminEndpointsRejectUserTokens(t *testing.T) {
	mailer := &fakeMailer{}
	router, _ := setupRouter(t, otp.New(2*time.Minute), mailer)

	registerUser(t, router, mailer, "a@b.com", "pw12345678")

	w := doJSON(router, http.MethodPost, "/login",
		`{"email":"a@b.com","password":"pw12345678"}`, "")

	var login loginResponse
	mustReadJSON(t, w, &login)

	// a perfectly valid user token is not an admin token
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/verify-admin-token"},
		{http.MethodGet, "/get-users"},
		{http.MethodGet, "/get-user/some-id"},
		{http.MethodDelete, "/delete-user/some-id"},
	} {
		w := doJSON(router, tc.method, tc.path, "", login.Token)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with user token status = %d, want 401", tc.method, tc.path, w.Code)
		}
	}

	// and no token at all is equally rejected
	w = doJSON(router, http.MethodGet, "/get-users", "", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no-token status = %d, want 401", w.Code)
	}
}

func TestAdminUserManagement(t *testing.T) {
	mailer := &fakeMailer{}
	router, users := setupRouter(t, otp.New(2*time.Minute), mailer)

	registerUser(t, router, mailer, "a@b.com", "pw12345678")
	registerUser(t, router, mailer, "c@d.com", "pw12345678")

	token := adminToken(t, router)

	// list
	w := doJSON(router, http.MethodGet, "/get-users", "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("get-users status = %d, body=%s", w.Code, w.Body.String())
	}

	var list struct {
		Users []map[string]any `json:"users"`
	}
	mustReadJSON(t, w, &list)

	if len(list.Users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(list.Users))
	}

	for _, u := range list.Users {
		for k := range u {
			if k == "password" || k == "passwordHash" {
				t.Fatalf("password material leaked in listing: %v", u)
			}
		}
	}

	// get one by id
	target, err := users.GetByEmail(t.Context(), "a@b.com")

	if err != nil {
		t.Fatal(err)
	}

	w = doJSON(router, http.MethodGet, "/get-user/"+target.ID, "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("get-user status = %d", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/get-user/unknown-id", "", token)

	if w.Code != http.StatusNotFound {
		t.Fatalf("get-user unknown status = %d, want 404", w.Code)
	}

	// delete twice: success then 404
	w = doJSON(router, http.MethodDelete, "/delete-user/"+target.ID, "", token)

	if w.Code != http.StatusOK {
		t.Fatalf("first delete status = %d", w.Code)
	}

	w = doJSON(router, http.MethodDelete, "/delete-user/"+target.ID, "", token)

	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", w.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	mailer := &fakeMailer{}

	cfg := testConfig()
	cfg.AdminTokenTTL = -time.Minute

	router, _ := setupRouterWithConfig(t, cfg, otp.New(2*time.Minute), mailer)

	// admin-login happily issues an already-expired token with this TTL
	token := adminToken(t, router)

	w := doJSON(router, http.MethodGet, "/get-users", "", token)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d, want 401", w.Code)
	}
}
