package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/knowyourenemy/statsadmit-backend/internal/flagx"
	"github.com/knowyourenemy/statsadmit-backend/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// Interval fields use timex.Duration, which accepts both string values such
// as "1h" and integer nanoseconds. After unmarshalling, its fields are
// copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	BcryptCost       int            `json:"bcrypt_cost"`
	AllowedOrigin    string         `json:"allowed_origin"`
	CookieSecure     *bool          `json:"cookie_secure"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags into the provided Config. When neither flag is set, nothing
// is loaded. An unreadable or invalid file panics: a config file that was
// asked for but cannot be honored should stop startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SessionTTL = time.Duration(c.SessionTTL.Duration)
	config.BcryptCost = c.BcryptCost
	config.AllowedOrigin = c.AllowedOrigin
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
