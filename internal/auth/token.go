package auth

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

var (
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the signed body of a session token.
type Claims struct {
	UserID    int64 `json:"sub"`
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// TokenSigner issues and checks session tokens of the form
// base64url(claims).base64url(DER secp256k1 signature over sha3-256(claims)).
type TokenSigner struct {
	key *secp256k1.PrivateKey
	now func() time.Time
}

// NewTokenSigner loads a hex private key. An empty key generates a fresh one,
// which invalidates sessions on restart.
func NewTokenSigner(hexKey string) (*TokenSigner, error) {
	if hexKey == "" {
		key, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		return &TokenSigner{key: key, now: time.Now}, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, err
	}
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, errors.New("token key must be 32 bytes")
	}
	return &TokenSigner{key: secp256k1.PrivKeyFromBytes(raw), now: time.Now}, nil
}

// GenerateKey returns a new hex encoded signing key.
func GenerateKey() (string, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key.Serialize()), nil
}

func (s *TokenSigner) Sign(userID int64, ttl time.Duration) (string, Claims, error) {
	now := s.now()
	claims := Claims{UserID: userID, IssuedAt: now.Unix(), ExpiresAt: now.Add(ttl).Unix()}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", Claims{}, err
	}
	digest := sha3.Sum256(payload)
	sig := ecdsa.Sign(s.key, digest[:])
	token := base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(sig.Serialize())
	return token, claims, nil
}

func (s *TokenSigner) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Claims{}, ErrTokenMalformed
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrTokenMalformed
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrTokenMalformed
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return Claims{}, ErrTokenMalformed
	}
	digest := sha3.Sum256(payload)
	if !sig.Verify(digest[:], s.key.PubKey()) {
		return Claims{}, ErrTokenSignature
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrTokenMalformed
	}
	if claims.UserID == 0 {
		return Claims{}, ErrTokenMalformed
	}
	if s.now().Unix() >= claims.ExpiresAt {
		return Claims{}, ErrTokenExpired
	}
	return claims, nil
}
