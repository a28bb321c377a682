package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSessionID generates a session ID with a timestamp prefix
func GenerateSessionID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("sess-%s-%s", timestamp, short)
}

// ValidateSessionID rejects IDs that would break URL routing.
func ValidateSessionID(id string) error {
	if strings.ContainsAny(id, "/:?# ") {
		return fmt.Errorf("session id %q cannot contain '/', ':', '?', '#' or spaces", id)
	}
	return nil
}
