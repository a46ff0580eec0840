package mailer

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeGmail serves the two Gmail API calls the transport makes.
type fakeGmail struct {
	token   string
	email   string
	sendErr int

	rawSent string
}

func (f *fakeGmail) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		writeGoogleError(w, http.StatusUnauthorized, "Invalid Credentials")
		return false
	}
	return true
}

func (f *fakeGmail) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"emailAddress": f.email})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		if f.sendErr != 0 {
			writeGoogleError(w, f.sendErr, "rejected")
			return
		}
		var body struct {
			Raw string `json:"raw"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw, err := base64.URLEncoding.DecodeString(body.Raw)
		if err != nil {
			writeGoogleError(w, http.StatusBadRequest, "bad raw")
			return
		}
		f.rawSent = string(raw)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "18c0ffee", "threadId": "18c0ffee"})
	})
	return mux
}

func writeGoogleError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func newGmailBuilder(srv *httptest.Server) *transportBuilder {
	return &transportBuilder{gmailEndpoint: srv.URL + "/", now: time.Now}
}

func TestGmailTransport_VerifyAndSend(t *testing.T) {
	fake := &fakeGmail{token: "ya29.good", email: "U@gmail.com"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	tr, err := newGmailBuilder(srv).Build(testCtx(t), ModeOAuth2, Credentials{Email: "u@gmail.com", AccessToken: "ya29.good"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := tr.Verify(testCtx(t)); err != nil {
		t.Fatalf("verify: %v", err)
	}

	id, err := tr.Send(testCtx(t), &Envelope{From: "u@gmail.com", To: []string{"r@z.com"}, Subject: "Hi", HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "18c0ffee" {
		t.Errorf("expected Gmail message id, got %q", id)
	}
	if !strings.Contains(fake.rawSent, "Subject: Hi") {
		t.Error("expected the raw RFC 5322 message to be uploaded")
	}
}

func TestGmailTransport_ExpiredToken(t *testing.T) {
	fake := &fakeGmail{token: "ya29.good", email: "u@gmail.com"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	tr, _ := newGmailBuilder(srv).Build(testCtx(t), ModeOAuth2, Credentials{Email: "u@gmail.com", AccessToken: "ya29.expired"})
	err := tr.Verify(testCtx(t))
	if err == nil {
		t.Fatal("expected verify to fail with a rejected token")
	}
	if !strings.Contains(err.Error(), "expired or revoked") {
		t.Errorf("expected token rejection diagnostic, got %v", err)
	}
}

func TestGmailTransport_AccountMismatch(t *testing.T) {
	fake := &fakeGmail{token: "tok", email: "someone-else@gmail.com"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	tr, _ := newGmailBuilder(srv).Build(testCtx(t), ModeOAuth2, Credentials{Email: "u@gmail.com", AccessToken: "tok"})
	if err := tr.Verify(testCtx(t)); err == nil {
		t.Fatal("expected verify to fail for a token of another account")
	}
}

func TestMailService_OAuthSendRejected(t *testing.T) {
	fake := &fakeGmail{token: "tok", email: "u@gmail.com", sendErr: http.StatusForbidden}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	svc := NewMailService(newGmailBuilder(srv), nil)
	result := svc.SendEmail(testCtx(t), SendRequest{
		Credentials: Credentials{Email: "u@gmail.com", AccessToken: "tok"},
		To:          "r@z.com",
		Subject:     "Hi",
		HTML:        "<p>hi</p>",
	})
	if result.Kind != KindSendRejected {
		t.Fatalf("expected send rejected, got %+v", result)
	}
	if !strings.Contains(result.Detail, "lacks permission") {
		t.Errorf("expected permission diagnostic, got %q", result.Detail)
	}
}
