package gcal

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
)

// The OAuth state is a short-lived signed token instead of a client-supplied
// blob: the callback only trusts what we signed ourselves.

const stateTTL = 5 * time.Minute

type stateClaims struct {
	HostID uint `json:"hid"`
	jwt.RegisteredClaims
}

func SignState(secret string, hostID uint, now time.Time) (string, error) {
	claims := stateClaims{
		HostID: hostID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyState returns the host id embedded in a valid, unexpired state.
func VerifyState(secret string, state string) (uint, error) {
	var claims stateClaims

	token, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.HostID == 0 {
		return 0, httperr.ErrBusiness("invalid_state")
	}

	return claims.HostID, nil
}
