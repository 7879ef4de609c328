package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		partnerCode string
		userType    string
		expiry      time.Duration
		wantErr     bool
	}{
		{
			name:        "Valid partner token",
			userID:      "6f1c2a34-0000-0000-0000-000000000001",
			partnerCode: "P-0001",
			userType:    "partner",
			expiry:      12 * time.Hour,
			wantErr:     false,
		},
		{
			name:        "Admin token",
			userID:      "6f1c2a34-0000-0000-0000-000000000002",
			partnerCode: "ADMIN",
			userType:    "admin",
			expiry:      12 * time.Hour,
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.userID, tt.partnerCode, tt.userType, testSecret, tt.expiry)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, token)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateToken("user-1", "P-0001", "partner", testSecret, time.Hour)
	require.NoError(t, err)

	t.Run("Valid token", func(t *testing.T) {
		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "P-0001", claims.PartnerCode)
		assert.Equal(t, "partner", claims.UserType)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		_, err := ValidateToken(token, "other-secret")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired token", func(t *testing.T) {
		expired, err := GenerateToken("user-1", "P-0001", "partner", testSecret, -time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(expired, testSecret)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, err := ValidateToken("not-a-token", testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
