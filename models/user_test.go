package models

import (
	"testing"
	"time"
)

func TestHasValidToken(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		rec  UserRecord
		want bool
	}{
		{"no token", UserRecord{}, false},
		{"token without expiry", UserRecord{Token: "tok"}, false},
		{"valid", UserRecord{Token: "tok", TokenExpiry: &future}, true},
		{"expired", UserRecord{Token: "tok", TokenExpiry: &past}, false},
		{"expiring exactly now", UserRecord{Token: "tok", TokenExpiry: &now}, false},
		{"expiry without token", UserRecord{TokenExpiry: &future}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.HasValidToken(now); got != tt.want {
				t.Errorf("HasValidToken = %v, want %v", got, tt.want)
			}
		})
	}
}
