package logger

import "testing"

func TestNewPerEnv(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		log, err := New(env, "info")
		if err != nil {
			t.Fatalf("New(%q): %v", env, err)
		}
		if log == nil {
			t.Fatalf("New(%q) returned nil logger", env)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("prod", "chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
