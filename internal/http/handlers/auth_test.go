package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/storefront/internal/account"
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type fakeAccounts struct {
	registerFn func(ctx context.Context, in account.RegisterInput) (account.Issued, error)
	resendFn   func(ctx context.Context, email string) (account.Issued, error)
	verifyFn   func(ctx context.Context, email, code string) (account.VerifyResult, error)
	loginFn    func(ctx context.Context, email, password string) (account.Session, error)
	forgotFn   func(ctx context.Context, email string) (account.Issued, error)
	resetFn    func(ctx context.Context, email, code, pw string) (account.Session, error)
}

func (f *fakeAccounts) Register(ctx context.Context, in account.RegisterInput) (account.Issued, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, in)
	}
	return account.Issued{}, nil
}

func (f *fakeAccounts) ResendRegisterOTP(ctx context.Context, email string) (account.Issued, error) {
	if f.resendFn != nil {
		return f.resendFn(ctx, email)
	}
	return account.Issued{}, nil
}

func (f *fakeAccounts) VerifyRegisterOTP(ctx context.Context, email, code string) (account.VerifyResult, error) {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, email, code)
	}
	return account.VerifyResult{}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (account.Session, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return account.Session{}, nil
}

func (f *fakeAccounts) ForgotPassword(ctx context.Context, email string) (account.Issued, error) {
	if f.forgotFn != nil {
		return f.forgotFn(ctx, email)
	}
	return account.Issued{}, nil
}

func (f *fakeAccounts) ResetPasswordWithOTP(ctx context.Context, email, code, pw string) (account.Session, error) {
	if f.resetFn != nil {
		return f.resetFn(ctx, email, code, pw)
	}
	return account.Session{}, nil
}

func authRouter(f *fakeAccounts) *gin.Engine {
	h := handlers.NewAuthHandler(f)
	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/resend", h.ResendRegisterOTP)
	r.POST("/verify", h.VerifyRegisterOTP)
	r.POST("/login", h.Login)
	r.POST("/forgot", h.ForgotPassword)
	r.POST("/reset", h.ResetPasswordWithOTP)
	return r
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		devOTP   string
		wantCode int
		wantErr  string
	}{
		{name: "created", body: `{"email":"a@b.test","name":"Ann","password":"secret1"}`, wantCode: http.StatusCreated},
		{name: "created with dev otp", body: `{"email":"a@b.test","name":"Ann","password":"secret1"}`, devOTP: "123456", wantCode: http.StatusCreated},
		{name: "short password", body: `{"email":"a@b.test","name":"Ann","password":"123"}`, wantCode: http.StatusBadRequest, wantErr: "invalid_request"},
		{name: "multibyte password over 72 bytes", body: `{"email":"a@b.test","name":"Ann","password":"` + strings.Repeat("é", 40) + `"}`, wantCode: http.StatusBadRequest, wantErr: "invalid_request"},
		{name: "padded one letter name", body: `{"email":"a@b.test","name":" a ","password":"secret1"}`, wantCode: http.StatusBadRequest, wantErr: "invalid_request"},
		{name: "password rejected by service", body: `{"email":"a@b.test","name":"Ann","password":"secret1"}`, err: account.ErrPasswordTooLong, wantCode: http.StatusBadRequest, wantErr: "invalid_request"},
		{name: "bad email", body: `{"email":"nope","name":"Ann","password":"secret1"}`, wantCode: http.StatusBadRequest, wantErr: "invalid_request"},
		{name: "email taken", body: `{"email":"a@b.test","name":"Ann","password":"secret1"}`, err: account.ErrEmailTaken, wantCode: http.StatusConflict, wantErr: "email_taken"},
		{name: "mail failed", body: `{"email":"a@b.test","name":"Ann","password":"secret1"}`, err: account.ErrMailDelivery, wantCode: http.StatusBadGateway, wantErr: "mail_failed"},
		{name: "unexpected", body: `{"email":"a@b.test","name":"Ann","password":"secret1"}`, err: errors.New("pq: password=hunter2"), wantCode: http.StatusInternalServerError, wantErr: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAccounts{registerFn: func(_ context.Context, in account.RegisterInput) (account.Issued, error) {
				return account.Issued{DevOTP: tt.devOTP}, tt.err
			}}

			w := doJSON(authRouter(f), http.MethodPost, "/register", tt.body, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}

			if tt.wantErr != "" {
				if got := errorCode(t, w); got != tt.wantErr {
					t.Fatalf("got code %q, want %q", got, tt.wantErr)
				}
				if bytesContain(w.Body.Bytes(), "hunter2") {
					t.Fatalf("internal error leaked: %s", w.Body.String())
				}
				return
			}

			var body map[string]any
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			_, hasDev := body["devOtp"]
			if hasDev != (tt.devOTP != "") {
				t.Fatalf("devOtp presence = %v, body=%s", hasDev, w.Body.String())
			}
		})
	}
}

func TestVerifyOTPHandlerMapsErrors(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{account.ErrInvalidOTP, http.StatusBadRequest, "invalid_otp"},
		{account.ErrOTPExpired, http.StatusBadRequest, "otp_expired"},
		{account.ErrOTPIncorrect, http.StatusBadRequest, "otp_incorrect"},
		{account.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.wantErr, func(t *testing.T) {
			f := &fakeAccounts{verifyFn: func(context.Context, string, string) (account.VerifyResult, error) {
				return account.VerifyResult{}, tt.err
			}}

			w := doJSON(authRouter(f), http.MethodPost, "/verify", `{"email":"a@b.test","otp":"123456"}`, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantCode)
			}
			if got := errorCode(t, w); got != tt.wantErr {
				t.Fatalf("got code %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestVerifyOTPHandlerSuccessShapes(t *testing.T) {
	f := &fakeAccounts{verifyFn: func(_ context.Context, email, code string) (account.VerifyResult, error) {
		if email == "done@b.test" {
			return account.VerifyResult{AlreadyVerified: true}, nil
		}
		return account.VerifyResult{Session: account.Session{
			Token: "tok",
			User:  user.Public{ID: "u1", Email: email, Name: "Ann"},
		}}, nil
	}}
	r := authRouter(f)

	w := doJSON(r, http.MethodPost, "/verify", `{"email":"a@b.test","otp":"123456"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Message string      `json:"message"`
		Token   string      `json:"token"`
		User    user.Public `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "Verified" || body.Token != "tok" || body.User.ID != "u1" {
		t.Fatalf("unexpected body %+v", body)
	}

	w = doJSON(r, http.MethodPost, "/verify", `{"email":"done@b.test","otp":"123456"}`, nil)
	if w.Code != http.StatusOK || !bytesContain(w.Body.Bytes(), "Already verified") {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodPost, "/verify", `{"email":"a@b.test","otp":"12"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short otp: status %d", w.Code)
	}
}

func TestLoginHandlerDistinguishesFailures(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{account.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{account.ErrNotVerified, http.StatusForbidden, "not_verified"},
	}

	for _, tt := range tests {
		t.Run(tt.wantErr, func(t *testing.T) {
			f := &fakeAccounts{loginFn: func(context.Context, string, string) (account.Session, error) {
				return account.Session{}, tt.err
			}}

			w := doJSON(authRouter(f), http.MethodPost, "/login", `{"email":"a@b.test","password":"secret1"}`, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantCode)
			}
			if got := errorCode(t, w); got != tt.wantErr {
				t.Fatalf("got code %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestForgotAndResendAreSuccessShaped(t *testing.T) {
	f := &fakeAccounts{}
	r := authRouter(f)

	for _, path := range []string{"/forgot", "/resend"} {
		w := doJSON(r, http.MethodPost, path, `{"email":"ghost@b.test"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, w.Code)
		}
		if bytesContain(w.Body.Bytes(), "devOtp") {
			t.Fatalf("%s: unexpected devOtp", path)
		}
	}
}

func TestResetPasswordHandler(t *testing.T) {
	var gotPW string
	f := &fakeAccounts{resetFn: func(_ context.Context, _, _, pw string) (account.Session, error) {
		gotPW = pw
		return account.Session{Token: "tok", User: user.Public{ID: "u1"}}, nil
	}}

	w := doJSON(authRouter(f), http.MethodPost, "/reset", `{"email":"a@b.test","otp":"123456","newPassword":"newsecret"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
	if gotPW != "newsecret" {
		t.Fatalf("new password not forwarded: %q", gotPW)
	}
	if !bytesContain(w.Body.Bytes(), "Password reset") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestResetPasswordHandlerRejectsOverlongPassword(t *testing.T) {
	called := false
	f := &fakeAccounts{resetFn: func(context.Context, string, string, string) (account.Session, error) {
		called = true
		return account.Session{}, nil
	}}

	body := `{"email":"a@b.test","otp":"123456","newPassword":"` + strings.Repeat("é", 40) + `"}`
	w := doJSON(authRouter(f), http.MethodPost, "/reset", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
	if called {
		t.Fatalf("service should not be reached with an overlong password")
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Error.Details.Fields) != 1 || resp.Error.Details.Fields[0].Field != "newPassword" || resp.Error.Details.Fields[0].Rule != "maxbytes" {
		t.Fatalf("unexpected fields: %+v", resp.Error.Details.Fields)
	}
}
