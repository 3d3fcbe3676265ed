// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey sign and verify reconnect credentials. The pair
// is generated fresh at process start: sessions do not survive a restart,
// so neither should their credentials.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
)

// Init generates the ed25519 key pair used to sign reconnect tokens.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return nil
}

// CreateReconnectToken signs a credential binding a player id to a room
// code. Presenting it on a later join re-binds the player's connection.
func CreateReconnectToken(playerID uuid.UUID, roomCode string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  playerID.String(),
		"room": roomCode,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// ParseReconnectToken verifies a credential and returns the player id and
// room code it was issued for.
func ParseReconnectToken(tokenStr string) (uuid.UUID, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	room, _ := claims["room"].(string)
	playerID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid subject in token: %w", err)
	}
	return playerID, room, nil
}
