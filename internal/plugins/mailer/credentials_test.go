package mailer

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		wantMode AuthMode
		wantErr  bool
	}{
		{"password", Credentials{Email: "u@gmail.com", Password: "app-pass"}, ModePassword, false},
		{"token", Credentials{Email: "u@gmail.com", AccessToken: "ya29.tok"}, ModeOAuth2, false},
		{"token wins over password", Credentials{Email: "u@gmail.com", Password: "p", AccessToken: "t"}, ModeOAuth2, false},
		{"neither", Credentials{Email: "u@gmail.com"}, "", true},
		{"no account", Credentials{Password: "p"}, "", true},
		{"blank account", Credentials{Email: "   ", AccessToken: "t"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := Resolve(tt.creds)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got mode %q", mode)
				}
				if k := KindOf(err); k != KindMissingAuthentication {
					t.Errorf("expected %s, got %s", KindMissingAuthentication, k)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mode != tt.wantMode {
				t.Errorf("expected mode %q, got %q", tt.wantMode, mode)
			}
		})
	}
}
