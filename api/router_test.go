package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password-1"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	viper.Set("db.driver", "sqlite")
	viper.Set("db.dsn", filepath.Join(dir, "test.db"))
	viper.Set("crypto.key_path", filepath.Join(dir, "clipboard.key"))
	viper.Set("storage.sync_dir", filepath.Join(dir, "sync"))
	viper.Set("storage.system_owner_email", "")
	viper.Set("storage.default_quota", int64(1<<20))
	viper.Set("upload.max_size", int64(1<<20))
	viper.Set("auth.jwt_secret", "test-secret")
	viper.Set("auth.token_expiry", 3600)
	viper.Set("auth.admin_email", adminEmail)
	viper.Set("auth.admin_password", adminPassword)

	a, err := NewRouter()
	require.NoError(t, err)

	return a
}

func doJSON(t *testing.T, a *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	return w
}

func doUpload(t *testing.T, a *API, path, token, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	return w
}

func login(t *testing.T, a *API, email, password string) string {
	t.Helper()

	w := doJSON(t, a, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)

	return resp.AccessToken
}

func registerUser(t *testing.T, a *API, adminToken, email, password string) {
	t.Helper()

	w := doJSON(t, a, http.MethodPost, "/api/users", adminToken, gin.H{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHeartbeat(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(t, a, http.MethodHead, "/api/heartbeat", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginAndValidate(t *testing.T) {
	a := newTestAPI(t)

	token := login(t, a, adminEmail, adminPassword)

	w := doJSON(t, a, http.MethodHead, "/api/validate", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, a, http.MethodHead, "/api/validate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, a, http.MethodHead, "/api/validate", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, a, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    adminEmail,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginLockout(t *testing.T) {
	a := newTestAPI(t)

	now := time.Now()
	err := a.DB.
		Model(model.User{}).
		Where("email = ?", adminEmail).
		Updates(map[string]any{
			"login_attempts":     5,
			"last_login_attempt": &now,
		}).
		Error
	require.NoError(t, err)

	// Even the correct password bounces while the lockout window is open
	w := doJSON(t, a, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    adminEmail,
		"password": adminPassword,
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// An expired window resets the counter and lets the login through
	stale := now.Add(-10 * time.Minute)
	err = a.DB.
		Model(model.User{}).
		Where("email = ?", adminEmail).
		Update("last_login_attempt", &stale).
		Error
	require.NoError(t, err)

	login(t, a, adminEmail, adminPassword)
}

func TestFileLifecycle(t *testing.T) {
	a := newTestAPI(t)
	token := login(t, a, adminEmail, adminPassword)

	w := doUpload(t, a, "/api/files", token, "file", "hello.txt", []byte("hello world"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var uploaded struct {
		File model.File `json:"file"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	require.NotZero(t, uploaded.File.ID)
	assert.Equal(t, "hello.txt", uploaded.File.Path)

	// Duplicate name is a conflict, not a silent overwrite
	w = doUpload(t, a, "/api/files", token, "file", "hello.txt", []byte("other"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/%d/download", uploaded.File.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())

	w = doJSON(t, a, http.MethodGet, "/api/files", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello.txt")

	w = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/api/files/%d", uploaded.File.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/api/files/%d", uploaded.File.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareFlow(t *testing.T) {
	a := newTestAPI(t)
	adminToken := login(t, a, adminEmail, adminPassword)

	registerUser(t, a, adminToken, "bob@example.com", "bob-password-1")
	bobToken := login(t, a, "bob@example.com", "bob-password-1")

	w := doUpload(t, a, "/api/files", adminToken, "file", "secret.txt", []byte("classified"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var uploaded struct {
		File model.File `json:"file"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	dl := fmt.Sprintf("/api/files/%d/download", uploaded.File.ID)

	w = doJSON(t, a, http.MethodGet, dl, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, a, http.MethodPost, fmt.Sprintf("/api/files/%d/share", uploaded.File.ID), adminToken, gin.H{
		"type":       "user",
		"user_email": "bob@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, a, http.MethodGet, dl, bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "classified", w.Body.String())

	// Sharing twice with the same user is a conflict
	w = doJSON(t, a, http.MethodPost, fmt.Sprintf("/api/files/%d/share", uploaded.File.ID), adminToken, gin.H{
		"type":       "user",
		"user_email": "bob@example.com",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/api/files/%d/share", uploaded.File.ID), adminToken, gin.H{
		"type":       "user",
		"user_email": "bob@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, a, http.MethodGet, dl, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Public sharing opens the file to everyone
	w = doJSON(t, a, http.MethodPost, fmt.Sprintf("/api/files/%d/share", uploaded.File.ID), adminToken, gin.H{
		"type": "public",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, a, http.MethodGet, dl, bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// But grantees never gain delete rights
	w = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/api/files/%d", uploaded.File.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterPermissions(t *testing.T) {
	a := newTestAPI(t)
	adminToken := login(t, a, adminEmail, adminPassword)

	registerUser(t, a, adminToken, "carol@example.com", "carol-password-1")

	// Duplicate email
	w := doJSON(t, a, http.MethodPost, "/api/users", adminToken, gin.H{
		"email":    "carol@example.com",
		"password": "whatever-123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Plain users can't create accounts at all
	carolToken := login(t, a, "carol@example.com", "carol-password-1")

	w = doJSON(t, a, http.MethodPost, "/api/users", carolToken, gin.H{
		"email":    "dave@example.com",
		"password": "dave-password-1",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestClipboardTextFlow(t *testing.T) {
	a := newTestAPI(t)
	token := login(t, a, adminEmail, adminPassword)

	w := doJSON(t, a, http.MethodPost, "/api/clipboard", token, gin.H{
		"content": "remember the milk",
		"type":    "text",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	// Stored ciphertext, not the plaintext
	var item model.ClipboardItem
	require.NoError(t, a.DB.First(&item, created.ID).Error)
	assert.NotEqual(t, "remember the milk", item.Content)

	// But the API hands back the decrypted content
	w = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/clipboard/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "remember the milk")

	w = doJSON(t, a, http.MethodGet, "/api/clipboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "remember the milk")

	w = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/api/clipboard/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/clipboard/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClipboardIsPerUser(t *testing.T) {
	a := newTestAPI(t)
	adminToken := login(t, a, adminEmail, adminPassword)

	registerUser(t, a, adminToken, "eve@example.com", "eve-password-1")
	eveToken := login(t, a, "eve@example.com", "eve-password-1")

	w := doJSON(t, a, http.MethodPost, "/api/clipboard", adminToken, gin.H{
		"content": "admin eyes only",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Another user can't fetch it, not even knowing the ID
	w = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/clipboard/%d", created.ID), eveToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, a, http.MethodGet, "/api/clipboard", eveToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "admin eyes only")
}

// Minimal valid PNG: signature plus truncated IHDR, enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00,
}

func TestClipboardImageFlow(t *testing.T) {
	a := newTestAPI(t)
	token := login(t, a, adminEmail, adminPassword)

	w := doUpload(t, a, "/api/clipboard", token, "file", "shot.png", pngBytes)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID        uint   `json:"id"`
		Type      string `json:"type"`
		ImagePath string `json:"image_path"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, model.ClipboardImage, created.Type)
	require.NotEmpty(t, created.ImagePath)

	// The sidecar on disk is ciphertext
	sidecar, err := os.ReadFile(filepath.Join(a.Sync.Root, clipboardImageDir, created.ImagePath))
	require.NoError(t, err)
	assert.NotEqual(t, pngBytes, sidecar)

	w = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/clipboard/%d/image", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngBytes, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	// Non-images are rejected up front
	w = doUpload(t, a, "/api/clipboard", token, "file", "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Deleting the item removes the sidecar too
	w = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/api/clipboard/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = os.Stat(filepath.Join(a.Sync.Root, clipboardImageDir, created.ImagePath))
	assert.True(t, os.IsNotExist(err))
}

func TestUserDeleteCascades(t *testing.T) {
	a := newTestAPI(t)
	adminToken := login(t, a, adminEmail, adminPassword)

	registerUser(t, a, adminToken, "frank@example.com", "frank-password-1")
	frankToken := login(t, a, "frank@example.com", "frank-password-1")

	w := doUpload(t, a, "/api/files", frankToken, "file", "franks.txt", []byte("mine"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, a, http.MethodPost, "/api/clipboard", frankToken, gin.H{"content": "note"})
	require.Equal(t, http.StatusCreated, w.Code)

	var frank model.User
	require.NoError(t, a.DB.First(&frank, "email = ?", "frank@example.com").Error)

	w = doJSON(t, a, http.MethodDelete, "/api/users/"+frank.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, a.DB.Model(model.File{}).Where("owner_id = ?", frank.ID).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, a.DB.Model(model.ClipboardItem{}).Where("owner_id = ?", frank.ID).Count(&count).Error)
	assert.Zero(t, count)

	_, err := os.Stat(filepath.Join(a.Sync.Root, "franks.txt"))
	assert.True(t, os.IsNotExist(err))

	// Their token dies with them
	w = doJSON(t, a, http.MethodGet, "/api/files", frankToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
