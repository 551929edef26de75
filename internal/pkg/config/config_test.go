package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
db_username: attendance
db_password: secret
db_host: localhost
db_name: attendance
jwt_key: key
timezone: UTC
recognition:
  url: http://localhost:5000
`

func TestNewConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, "http://localhost:5000", c.Recognition.URL)
	assert.Equal(t, 0.6, c.Recognition.Threshold)
	assert.Equal(t, 10*time.Second, c.RecognitionTimeout())
	assert.Equal(t, time.Minute, c.TapWindowDuration())
	assert.Equal(t, "0 2 1 * *", c.ExportSchedule)
	assert.Equal(t, time.UTC, c.Location())
}

func TestParseErrors(t *testing.T) {
	const db = "db_username: a\ndb_password: b\ndb_host: c\ndb_name: d\n"

	tests := []struct {
		name string
		yaml string
	}{
		{"missing database", "jwt_key: key"},
		{"missing jwt key", db},
		{"unknown timezone", db + "jwt_key: key\ntimezone: Mars/Olympus"},
		{"not yaml", "db_username: [a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseThreshold(t *testing.T) {
	doc := `
db_username: attendance
db_password: secret
db_host: localhost
db_name: attendance
jwt_key: key
recognition:
  threshold: 1.5
`
	_, err := Parse([]byte(doc))
	assert.Error(t, err)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
