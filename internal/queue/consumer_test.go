package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/logger"
)

func TestFormatOTPMasksCode(t *testing.T) {
	body, _ := json.Marshal(OTPRequestedEvent{
		Email: "a@b.co", Code: "123456", Purpose: "signup",
		ExpiresAt: "2026-01-01T10:10:00Z", RequestedAt: "2026-01-01T10:00:00Z",
	})
	file, line, err := Format(OTPRequestedQueue, body)
	require.NoError(t, err)
	assert.Equal(t, "otp.log", file)
	assert.Contains(t, line, "email=a@b.co")
	assert.Contains(t, line, "code=****56")
	assert.NotContains(t, line, "123456")
}

func TestFormatRejectsUnknownQueue(t *testing.T) {
	_, _, err := Format("booking.confirmed", []byte("{}"))
	assert.Error(t, err)
	_, _, err = Format(AccountDeletedQueue, []byte("not json"))
	assert.Error(t, err)
}

func TestHandleAppendsToFile(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{Dir: filepath.Join(dir, "logs"), Log: logger.Nop()}

	for _, id := range []string{"u1", "u2"} {
		body, _ := json.Marshal(AccountDeletedEvent{UserID: id, Email: id + "@x.co", Method: "self_service"})
		require.NoError(t, c.Handle(AccountDeletedQueue, body))
	}
	data, err := os.ReadFile(filepath.Join(dir, "logs", "account.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "user_id=u1")
	assert.Contains(t, string(data), "user_id=u2")
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

