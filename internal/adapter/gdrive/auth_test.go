package gdrive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "nested", "token.json")
	auth := NewAuthenticator("id", "secret", tokenPath)

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	if err := auth.saveToken(token); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}

	info, err := os.Stat(tokenPath)
	if err != nil {
		t.Fatalf("Token file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected token file mode 0600, got %o", info.Mode().Perm())
	}

	loaded, err := auth.loadToken()
	if err != nil {
		t.Fatalf("loadToken failed: %v", err)
	}
	if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" || !loaded.Expiry.Equal(token.Expiry) {
		t.Errorf("Expected token to round-trip, got %+v", loaded)
	}

	got, err := auth.GetClient(context.Background())
	if err != nil {
		t.Fatalf("GetClient failed for valid token: %v", err)
	}
	if got.AccessToken != "access" {
		t.Errorf("Expected stored access token, got %q", got.AccessToken)
	}
}

func TestGetClient_NoToken(t *testing.T) {
	auth := NewAuthenticator("id", "secret", filepath.Join(t.TempDir(), "missing.json"))

	_, err := auth.GetClient(context.Background())
	if err == nil {
		t.Fatal("Expected error without token")
	}
	if !strings.Contains(err.Error(), "drivesync auth gdrive") {
		t.Errorf("Expected hint to run auth command, got %v", err)
	}
}

func TestLoadToken_Invalid(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	os.WriteFile(tokenPath, []byte("{not json"), 0600)

	if _, err := NewAuthenticator("id", "secret", tokenPath).loadToken(); err == nil {
		t.Error("Expected error for invalid token file")
	}
}
