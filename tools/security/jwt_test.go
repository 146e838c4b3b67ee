package security

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerify(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions([]byte("s3cret"))

	tok, exp, err := Generate(opts, 1001)
	req.NoError(err)
	req.WithinDuration(time.Now().Add(2*time.Hour), exp, 5*time.Second)

	claims, err := Verify(opts, tok)
	req.NoError(err)
	uid, err := claims.UserID()
	req.NoError(err)
	req.Equal(int64(1001), uid)
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, _, err := Generate(DefaultOptions([]byte("a")), 1)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("b")), tok)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions([]byte("k"))
	claims := jwtlib.MapClaims{"sub": "5", "exp": time.Now().Add(-time.Minute).Unix()}
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(opts.Secret)
	req.NoError(err)

	_, err = Verify(opts, tok)
	req.Error(err)
}

func TestVerify_RejectsOtherHMACSize(t *testing.T) {
	tok, _, err := Generate(Options{Secret: []byte("k"), Alg: "HS512"}, 1)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("k")), tok)
	require.Error(t, err)
}

func TestUserID_NonNumericSubject(t *testing.T) {
	c := &JWTClaims{jwtlib.MapClaims{"sub": "alice"}}
	_, err := c.UserID()
	require.Error(t, err)
}

func TestSigningMethod_Unsupported(t *testing.T) {
	_, err := signingMethod("RS256")
	require.Error(t, err)
}
