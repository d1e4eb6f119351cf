package connection

import "testing"

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		want    string
		wantErr bool
	}{
		{"http", "http://localhost:5000/feed", "ws://localhost:5000/ws", false},
		{"https", "https://orphanbars.example/messages?u=1#top", "wss://orphanbars.example/ws", false},
		{"already ws", "ws://host/ws", "ws://host/ws", false},
		{"wss", "wss://host", "wss://host/ws", false},
		{"strips credentials", "https://a:b@host/", "wss://host/ws", false},
		{"ftp", "ftp://host/", "", true},
		{"no host", "/feed", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndpointURL(tt.page)
			if tt.wantErr {
				if err == nil {
					t.Errorf("EndpointURL(%q) = %q, want error", tt.page, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("EndpointURL(%q) error: %v", tt.page, err)
			}
			if got != tt.want {
				t.Errorf("EndpointURL(%q) = %q, want %q", tt.page, got, tt.want)
			}
		})
	}
}

func TestStaticSession(t *testing.T) {
	s := NewStaticSession("connect.sid", "s:abc")
	if !s.Authenticated() {
		t.Fatal("expected authenticated")
	}
	if got := s.Header().Get("Cookie"); got != "connect.sid=s:abc" {
		t.Errorf("Cookie = %q", got)
	}

	s.Logout()
	if s.Authenticated() {
		t.Error("expected logged out")
	}
	if got := s.Header().Get("Cookie"); got != "" {
		t.Errorf("Cookie after logout = %q, want empty", got)
	}
}
