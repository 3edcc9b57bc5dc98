package jwt_test

import (
	"testing"

	"github.com/jhoicas/Inventario-ledger/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	token, err := jwt.Generate("secret", "ledger", "user-1", "almacen", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse("secret", "ledger", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "almacen", claims.Role)
}

func TestParse_Rejects(t *testing.T) {
	token, err := jwt.Generate("secret", "ledger", "user-1", "almacen", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", "ledger", token)
	assert.Error(t, err, "firma incorrecta")

	_, err = jwt.Parse("secret", "otro-emisor", token)
	assert.Error(t, err, "emisor incorrecto")

	expired, err := jwt.Generate("secret", "ledger", "user-1", "almacen", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("secret", "ledger", expired)
	assert.Error(t, err, "expirado")

	_, err = jwt.Generate("", "ledger", "u", "r", 5)
	assert.Error(t, err)
}
