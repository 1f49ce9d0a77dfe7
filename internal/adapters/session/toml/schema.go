package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	StateBlob string         `toml:"state_blob"`
	Metadata  metadataSchema `toml:"metadata"`
}

type metadataSchema struct {
	Username          string       `toml:"username"`
	CreatedAt         string       `toml:"created_at"`
	LastUpdated       string       `toml:"last_updated"`
	LastValidated     string       `toml:"last_validated,omitempty"`
	LastFreshLogin    string       `toml:"last_fresh_login,omitempty"`
	LoginCount        int          `toml:"login_count"`
	SchemaVersion     int          `toml:"schema_version"`
	DeviceIdentifiers deviceSchema `toml:"device_identifiers"`
}

type deviceSchema struct {
	DeviceID        string `toml:"device_id"`
	PhoneID         string `toml:"phone_id"`
	UUID            string `toml:"uuid"`
	ClientSessionID string `toml:"client_session_id"`
	AdvertisingID   string `toml:"advertising_id"`
}
