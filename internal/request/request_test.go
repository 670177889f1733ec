package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded-for single", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "", "203.0.113.7"},
		{"forwarded-for chain picks first", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.2 "}, "", "203.0.113.7"},
		{"real-ip fallback", map[string]string{"X-Real-IP": "198.51.100.9"}, "", "198.51.100.9"},
		{"remote addr fallback", nil, "10.0.0.1:4410", "10.0.0.1:4410"},
		{"forwarded-for wins over real-ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.9"}, "", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	t.Run("round trips the user", func(t *testing.T) {
		t.Parallel()
		u := &models.User{ID: uuid.New(), Email: "writer@example.com"}
		r := httptest.NewRequest("GET", "/", nil).WithContext(WithUser(context.Background(), u))
		got := UserFromContext(r)
		if got != u {
			t.Fatalf("UserFromContext() = %p, want %p", got, u)
		}
	})

	t.Run("nil when absent", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/", nil)
		if got := UserFromContext(r); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil", got)
		}
	})

	t.Run("nil when wrong type", func(t *testing.T) {
		t.Parallel()
		ctx := context.WithValue(context.Background(), UserContextKey(), "not a user")
		r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
		if got := UserFromContext(r); got != nil {
			t.Errorf("UserFromContext() = %+v, want nil", got)
		}
	})
}
