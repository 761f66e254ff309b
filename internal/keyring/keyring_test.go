package keyring

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetConnectionString(t *testing.T) {
	gokeyring.MockInit()

	testConnStr := "postgres://testuser@localhost:5432/testdb?sslmode=disable"

	if err := SetConnectionString(testConnStr); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}

	retrieved, err := GetConnectionString()
	if err != nil {
		t.Fatalf("GetConnectionString() failed: %v", err)
	}
	if retrieved != testConnStr {
		t.Errorf("GetConnectionString() = %q, want %q", retrieved, testConnStr)
	}
}

func TestSetConnectionStringEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString(""); err == nil {
		t.Error("SetConnectionString(\"\") should return an error")
	}
}

func TestGetConnectionStringNotFound(t *testing.T) {
	gokeyring.MockInit()
	_ = DeleteConnectionString()

	if _, err := GetConnectionString(); err != ErrNotFound {
		t.Errorf("GetConnectionString() error = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteConnectionStringNotFound(t *testing.T) {
	gokeyring.MockInit()
	_ = DeleteConnectionString()

	if err := DeleteConnectionString(); err != ErrNotFound {
		t.Errorf("DeleteConnectionString() error = %v, want %v", err, ErrNotFound)
	}
}

func TestSessionUserLifecycle(t *testing.T) {
	gokeyring.MockInit()

	if err := SetSessionUser(""); err == nil {
		t.Error("SetSessionUser(\"\") should return an error")
	}
	if err := SetSessionUser("user-a"); err != nil {
		t.Fatalf("SetSessionUser() failed: %v", err)
	}
	got, err := GetSessionUser()
	if err != nil || got != "user-a" {
		t.Fatalf("GetSessionUser() = %q, %v; want user-a", got, err)
	}

	// The session and the connection string live under separate keyring users
	if _, err := GetConnectionString(); err != ErrNotFound {
		t.Errorf("GetConnectionString() error = %v, want %v", err, ErrNotFound)
	}

	if err := DeleteSessionUser(); err != nil {
		t.Fatalf("DeleteSessionUser() failed: %v", err)
	}
	if _, err := GetSessionUser(); err != ErrNotFound {
		t.Errorf("after logout GetSessionUser() error = %v, want %v", err, ErrNotFound)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() = false, want true in mock mode")
	}
}
