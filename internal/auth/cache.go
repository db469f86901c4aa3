package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// cacheTTL bounds how long a verified identity is reused without re-checking
// the provider. Kept short so revoked tokens age out quickly.
const cacheTTL = 5 * time.Minute

// CachedVerifier caches successful verifications in a KV store keyed by the
// token hash, so repeated requests with the same bearer token skip the
// identity-provider round trip. Failures are never cached.
type CachedVerifier struct {
	inner  TokenVerifier
	kv     KV
	logger *zap.Logger
}

func NewCachedVerifier(inner TokenVerifier, kv KV, logger *zap.Logger) *CachedVerifier {
	return &CachedVerifier{inner: inner, kv: kv, logger: logger}
}

var _ TokenVerifier = (*CachedVerifier)(nil)

func (v *CachedVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	key := cacheKey(token)

	if raw, err := v.kv.Get(ctx, key); err == nil {
		var id Identity
		if err := json.Unmarshal([]byte(raw), &id); err == nil && id.AuthID != "" {
			return &id, nil
		}
	} else if err != ErrMiss {
		// Cache unavailable: fall through to the provider.
		v.logger.Warn("Token cache read failed", zap.Error(err))
	}

	id, err := v.inner.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(id); err == nil {
		if err := v.kv.Set(ctx, key, string(raw), cacheTTL); err != nil {
			v.logger.Warn("Token cache write failed", zap.Error(err))
		}
	}
	return id, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "authtok:" + hex.EncodeToString(sum[:])
}
