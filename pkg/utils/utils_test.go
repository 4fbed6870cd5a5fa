package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateVATNumber(t *testing.T) {
	tests := []struct {
		name    string
		vat     string
		wantErr bool
	}{
		{"valid", "01234567897", false},
		{"valid with spaces", " 01234567897 ", false},
		{"bad check digit", "01234567890", true},
		{"too short", "1234567897", true},
		{"letters", "0123456789A", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVATNumber(tt.vat)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsPersonalFiscalCode(t *testing.T) {
	assert.True(t, IsPersonalFiscalCode("BNCLRA85M41F205X"))
	assert.True(t, IsPersonalFiscalCode("bnclra85m41f205x"))
	assert.False(t, IsPersonalFiscalCode("01234567897"))
	assert.False(t, IsPersonalFiscalCode(""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "ab", SanitizeString("a\x00b"))
	assert.Equal(t, "riga 1\nriga 2\tok", SanitizeString("riga 1\nriga 2\tok\x1b"))
}

func TestNewLogger_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	assert.FileExists(t, path)
}

func TestWithComponent_NilLogger(t *testing.T) {
	logger := WithComponent(nil, "x")
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("noop") })

	assert.NotNil(t, WithComponent(zap.NewNop(), "x"))
}
