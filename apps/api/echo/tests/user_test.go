package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	echoapi "github.com/dkamau/elimu/apps/api/echo"
	"github.com/dkamau/elimu/core/user"
	emailsvc "github.com/dkamau/elimu/services/email"
)

func Test_userApi_register(t *testing.T) {
	existing := createUser(t, "Taken", "taken@test.cd", "pa$$word", user.RoleStudent, true, true)

	tests := []httpTest{
		{
			name: "password mismatch",
			body: marchallObj(t, user.NewUser{Name: "Jo", Email: "jo@test.cd", Password: "pa$$word", PasswordConfirm: "lol"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "email taken",
			body: marchallObj(t, user.NewUser{Name: "Jo", Email: existing.Email, Password: "pa$$word", PasswordConfirm: "pa$$word"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "register",
			body: marchallObj(t, user.NewUser{Name: "Jo", Email: "jo@test.cd", Password: "pa$$word", PasswordConfirm: "pa$$word"}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/register"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			req, rec := newRequest(tt)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
			if rec.Code != http.StatusCreated {
				return
			}

			var usr user.User
			unmarchallObj(t, rec.Body.Bytes(), &usr)
			if usr.Role != user.RoleStudent {
				t.Errorf("new account role = %s, want %s", usr.Role, user.RoleStudent)
			}
			if usr.EmailVerified {
				t.Error("new account must start unverified")
			}

			if len(emailsvc.SentMessages) != 1 {
				t.Fatalf("sent %d mails, want 1", len(emailsvc.SentMessages))
			}
			msg := emailsvc.SentMessages[0]
			if msg.Subject != "Welcome! Confirm your email address" {
				t.Errorf("mail subject = %q", msg.Subject)
			}
			if !strings.Contains(msg.TextContent, "/verify-email?t=") {
				t.Error("mail must carry the verification link")
			}
		})
	}
}

func Test_userApi_verifyEmail(t *testing.T) {
	usr := createUser(t, "Vero", "vero@test.cd", "pa$$word", user.RoleStudent, true, false)

	tests := []httpTest{
		{
			name:     "garbage uid",
			body:     marchallObj(t, user.VerifyUserEmail{Token: "lol", UID: "!!!"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "tampered token",
			body:     marchallObj(t, user.VerifyUserEmail{Token: "lol-token", UID: user.EncodeUID(usr)}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "verify",
			body:     marchallObj(t, user.VerifyUserEmail{Token: user.MakeEmailVerificationToken(usr), UID: user.EncodeUID(usr)}),
			wantCode: http.StatusOK,
		},
		{
			name:     "verify again is idempotent",
			body:     marchallObj(t, user.VerifyUserEmail{Token: user.MakeEmailVerificationToken(usr), UID: user.EncodeUID(usr)}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/verify-email"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
			if rec.Code != http.StatusOK {
				return
			}

			refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
			if err != nil {
				t.Fatalf("GetUserByID() failed: %v", err)
			}
			if !refreshed.EmailVerified {
				t.Error("account must be verified")
			}
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	usr := createUser(t, "Resetta", "resetta@test.cd", "oldpa$$word", user.RoleStudent, true, true)

	nonLeaking := marchallObj(t, echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	emailsvc.ClearSentMessages()

	// the response never leaks whether the account exists
	for _, email := range []string{usr.Email, "ghost@test.cd"} {
		tt := httpTest{
			method: http.MethodPost, path: "/api/users/password-reset",
			body:     marchallObj(t, echoapi.PasswordResetRequest{Email: email}),
			wantCode: http.StatusOK, wantData: nonLeaking,
		}
		req, rec := newRequest(tt)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d mails, want 1 (existing account only)", len(emailsvc.SentMessages))
	}

	// confirm with a bad token
	tt := httpTest{
		method: http.MethodPost, path: "/api/users/password-reset-confirm",
		body: marchallObj(t, user.ResetUserPassword{
			Token: "lol", UID: user.EncodeUID(usr), Password: "newpa$$word", PasswordConfirm: "newpa$$word",
		}),
		wantCode: http.StatusBadRequest,
	}
	req, rec := newRequest(tt)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// confirm with the real token
	tt = httpTest{
		method: http.MethodPost, path: "/api/users/password-reset-confirm",
		body: marchallObj(t, user.ResetUserPassword{
			Token: user.MakePasswordResetToken(usr), UID: user.EncodeUID(usr),
			Password: "newpa$$word", PasswordConfirm: "newpa$$word",
		}),
		wantCode: http.StatusOK,
		wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
	}
	req, rec = newRequest(tt)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if err := refreshed.CheckPassword("newpa$$word"); err != nil {
		t.Error("new password must be in effect")
	}
	if err := refreshed.CheckPassword("oldpa$$word"); err == nil {
		t.Error("old password must no longer work")
	}
}

func Test_userApi_me(t *testing.T) {
	usr := createUser(t, "Mimi", "mimi@test.cd", "pa$$word", user.RoleStudent, true, true)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthorized)},
		{name: "get me", method: http.MethodGet, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
		{
			name: "update me", method: http.MethodPut, token: token,
			body:     marchallObj(t, user.UpdateUser{Name: "Mimi K"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.path = "/api/users/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.method == http.MethodPut && rec.Code == http.StatusOK {
				refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if refreshed.Name != "Mimi K" {
					t.Errorf("name = %s, want Mimi K", refreshed.Name)
				}
				if refreshed.Role != usr.Role {
					t.Error("profile update must not move the role")
				}
			}
		})
	}
}

func Test_userApi_elevateRole(t *testing.T) {
	admin := createUser(t, "Admin", "admin-roles@test.cd", "pa$$word", user.RoleAdmin, true, true)
	target := createUser(t, "Climber", "climber@test.cd", "pa$$word", user.RoleStudent, true, true)

	adminToken := getToken(t, admin)
	studentToken := getToken(t, target)

	tests := []httpTest{
		{
			name: "auth required", path: "/api/users/" + target.ID + "/role",
			body:     marchallObj(t, echoapi.ElevateRoleRequest{Role: user.RoleInstructor}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthorized),
		},
		{
			name: "admin required", path: "/api/users/" + target.ID + "/role", token: studentToken,
			body:     marchallObj(t, echoapi.ElevateRoleRequest{Role: user.RoleInstructor}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown role", path: "/api/users/" + target.ID + "/role", token: adminToken,
			body:     marchallObj(t, echoapi.ElevateRoleRequest{Role: "boss"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "unknown role"}),
		},
		{
			name: "unknown user", path: "/api/users/lol/role", token: adminToken,
			body:     marchallObj(t, echoapi.ElevateRoleRequest{Role: user.RoleInstructor}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "elevate", path: "/api/users/" + target.ID + "/role", token: adminToken,
			body:     marchallObj(t, echoapi.ElevateRoleRequest{Role: user.RoleInstructor}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	refreshed, err := usrRepo.GetUserByID(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if refreshed.Role != user.RoleInstructor {
		t.Errorf("role = %s, want %s", refreshed.Role, user.RoleInstructor)
	}
}

func Test_userApi_query(t *testing.T) {
	admin := createUser(t, "Admin", "admin-query@test.cd", "pa$$word", user.RoleAdmin, true, true)
	student := createUser(t, "Student", "student-query@test.cd", "pa$$word", user.RoleStudent, true, true)

	tests := []httpTest{
		{name: "auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthorized)},
		{
			name: "admin required", path: "/api/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "get all", path: "/api/users", token: getToken(t, admin), wantCode: http.StatusOK},
		{name: "get roles", path: "/api/users/roles", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
