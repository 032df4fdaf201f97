package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExists(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "registered", status: http.StatusOK, want: true},
		{name: "not found", status: http.StatusNotFound, want: false},
		{name: "server error", status: http.StatusInternalServerError, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/user/get/PK1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			if got := c.Exists(context.Background(), "PK1"); got != tt.want {
				t.Fatalf("Exists = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExists_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	if c.Exists(context.Background(), "PK1") {
		t.Fatal("unreachable directory must read as not registered")
	}
}
