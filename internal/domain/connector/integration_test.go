package connector

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntegration(t *testing.T) {
	t.Run("valid system", func(t *testing.T) {
		integ, err := NewIntegration(uuid.New(), ERPSystemOdoo, "Main Odoo", "https://odoo.example.com", false)
		require.NoError(t, err)
		assert.Equal(t, ConnectionStatusDisconnected, integ.ConnectionStatus)
		assert.True(t, integ.IsActive)
	})

	t.Run("rejects unknown system", func(t *testing.T) {
		_, err := NewIntegration(uuid.New(), ERPSystem("netsuite"), "x", "", false)
		require.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewIntegration(uuid.New(), ERPSystemSage, "", "", false)
		require.Error(t, err)
	})
}

func TestIntegration_NeedsRefresh(t *testing.T) {
	now := time.Now()
	skew := 5 * time.Minute

	t.Run("session auth systems never refresh", func(t *testing.T) {
		integ, err := NewIntegration(uuid.New(), ERPSystemOdoo, "odoo", "", false)
		require.NoError(t, err)
		assert.False(t, integ.NeedsRefresh(now, skew))
	})

	t.Run("fresh token is a no-op", func(t *testing.T) {
		integ, err := NewIntegration(uuid.New(), ERPSystemQuickBooks, "qb", "", false)
		require.NoError(t, err)
		exp := now.Add(time.Hour)
		integ.TokenExpiresAt = &exp
		assert.False(t, integ.NeedsRefresh(now, skew))
	})

	t.Run("token inside the skew window refreshes", func(t *testing.T) {
		integ, err := NewIntegration(uuid.New(), ERPSystemDynamics365, "d365", "", false)
		require.NoError(t, err)
		exp := now.Add(3 * time.Minute)
		integ.TokenExpiresAt = &exp
		assert.True(t, integ.NeedsRefresh(now, skew))
	})

	t.Run("missing expiry refreshes", func(t *testing.T) {
		integ, err := NewIntegration(uuid.New(), ERPSystemCustomREST, "custom", "", false)
		require.NoError(t, err)
		assert.True(t, integ.NeedsRefresh(now, skew))
	})
}

func TestIntegration_Disable(t *testing.T) {
	integ, err := NewIntegration(uuid.New(), ERPSystemSAPB1, "sap", "", false)
	require.NoError(t, err)
	now := time.Now()
	integ.MarkConnected(now)
	assert.Equal(t, ConnectionStatusConnected, integ.ConnectionStatus)

	integ.Disable(now)
	assert.False(t, integ.IsActive)
	assert.Equal(t, ConnectionStatusDisconnected, integ.ConnectionStatus)
}

func TestERPSystem_UsesOAuth(t *testing.T) {
	assert.True(t, ERPSystemQuickBooks.UsesOAuth())
	assert.True(t, ERPSystemDynamics365.UsesOAuth())
	assert.True(t, ERPSystemCustomREST.UsesOAuth())
	assert.False(t, ERPSystemOdoo.UsesOAuth())
	assert.False(t, ERPSystemSAPB1.UsesOAuth())
	assert.False(t, ERPSystemSage.UsesOAuth())
}
