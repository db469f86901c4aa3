package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIdentityClientVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req lookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")

		switch req.IDToken {
		case "good-token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"users": []map[string]any{
					{"localId": "auth-123", "email": "resident@example.com"},
				},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "INVALID_ID_TOKEN"},
			})
		}
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, "test-key", zap.NewNop())

	id, err := client.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	require.Equal(t, "auth-123", id.AuthID)
	require.Equal(t, "resident@example.com", id.Email)

	_, err = client.Verify(context.Background(), "expired-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = client.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityClientVerifyEmptyUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"users": []any{}})
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL, "test-key", zap.NewNop())
	_, err := client.Verify(context.Background(), "token-without-account")
	require.ErrorIs(t, err, ErrInvalidToken)
}
