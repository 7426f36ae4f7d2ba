package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newGraphServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client_secret") != "app-secret" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if q.Get("grant_type") == "client_credentials" {
			w.Write([]byte(`{"access_token":"app-token"}`))
			return
		}
		if q.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"Invalid verification code format."}}`))
			return
		}
		w.Write([]byte(`{"access_token":"user-token"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.Contains(r.URL.Query().Get("fields"), "picture.width(200)") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"id":"fb-42","name":"Ann Lee","first_name":"Ann","last_name":"Lee",
			"email":"ann@example.com","picture":{"data":{"url":"https://cdn.example.com/ann.jpg","is_silhouette":false}}}`))
	})
	mux.HandleFunc("/pic.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFacebookClient_ProfileFromCode(t *testing.T) {
	srv := newGraphServer(t)
	c, err := NewFacebookClient(Config{AppID: "app", AppSecret: "app-secret", GraphURL: srv.URL, PictureSize: 200})
	if err != nil {
		t.Fatalf("NewFacebookClient() failed: %v", err)
	}
	ctx := context.Background()

	profile, err := c.ProfileFromCode(ctx, "good-code")
	if err != nil {
		t.Fatalf("ProfileFromCode() failed: %v", err)
	}
	if profile.ID != "fb-42" || profile.FirstName != "Ann" || profile.PictureURL != "https://cdn.example.com/ann.jpg" {
		t.Errorf("Unexpected profile %+v", profile)
	}

	tests := []struct {
		name string
		code string
	}{
		{"EmptyCode", ""},
		{"RejectedCode", "bad-code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.ProfileFromCode(ctx, tt.code); !errors.Is(err, ErrInvalidCode) {
				t.Errorf("Expected ErrInvalidCode, got %v", err)
			}
		})
	}
}

func TestFacebookClient_FetchPictureAndPing(t *testing.T) {
	srv := newGraphServer(t)
	c, _ := NewFacebookClient(Config{AppID: "app", AppSecret: "app-secret", GraphURL: srv.URL})
	ctx := context.Background()

	data, err := c.FetchPicture(ctx, srv.URL+"/pic.jpg")
	if err != nil || string(data) != "jpeg-bytes" {
		t.Errorf("FetchPicture() = %q, %v", data, err)
	}
	if _, err := c.FetchPicture(ctx, ""); err == nil {
		t.Error("Expected empty url to be rejected")
	}

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}

	bad, _ := NewFacebookClient(Config{AppID: "app", AppSecret: "wrong", GraphURL: srv.URL})
	if err := bad.Ping(ctx); err == nil {
		t.Error("Expected ping with bad secret to fail")
	}

	if _, err := NewFacebookClient(Config{}); err == nil {
		t.Error("Expected missing graph url error")
	}
}
