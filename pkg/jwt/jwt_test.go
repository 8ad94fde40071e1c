package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/Reservas-api/pkg/jwt"
)

const secret = "secreto-de-pruebas"

func TestGenerateYParse(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "reservas-test", 5)
	require.NoError(t, err)

	userID, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := pkgjwt.Generate("otro-secreto", "user-1", "reservas-test", 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, tok)
	assert.ErrorIs(t, err, pkgjwt.ErrInvalidToken)
}

func TestParse_Vencido(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "reservas-test", -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, tok)
	assert.ErrorIs(t, err, pkgjwt.ErrInvalidToken)
}

func TestParse_UsaSubjectSinUserID(t *testing.T) {
	claims := gojwt.RegisteredClaims{
		Subject:   "user-sub",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	userID, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-sub", userID)
}

func TestGenerate_Validaciones(t *testing.T) {
	_, err := pkgjwt.Generate("", "user-1", "x", 5)
	assert.Error(t, err)
	_, err = pkgjwt.Generate(secret, "", "x", 5)
	assert.Error(t, err)
	_, err = pkgjwt.Parse("", "abc")
	assert.Error(t, err)
}
