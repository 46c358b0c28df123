package config

import "os"

// Config is the process-wide service configuration, read from the
// environment once at startup. The OAuth2 fields mirror the recognized
// options of the login helper; mandatory-field validation happens in
// oauth.NewHelper so a misconfigured service fails before serving.
type Config struct {
	Port            string
	DatabaseFile    string
	MigrationsDir   string
	RedisAddr       string
	ServiceAPIToken string

	AuthorizationEndpoint   string
	TokenEndpoint           string
	ProfileAPIURL           string
	ClientID                string
	ClientSecret            string
	Scope                   string
	RemembererName          string
	ProfileAPIUserField     string
	ProfileAPIFullnameField string
	ProfileAPIMailField     string
}

// FromEnv loads the configuration with defaults for the service plumbing.
func FromEnv() Config {
	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseFile:    getenv("DATABASE_FILE", "./oauth2_login.db"),
		MigrationsDir:   getenv("MIGRATIONS_DIR", "./database/migrations"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		ServiceAPIToken: os.Getenv("SERVICE_API_TOKEN"),

		AuthorizationEndpoint:   os.Getenv("OAUTH2_AUTHORIZATION_ENDPOINT"),
		TokenEndpoint:           os.Getenv("OAUTH2_TOKEN_ENDPOINT"),
		ProfileAPIURL:           os.Getenv("OAUTH2_PROFILE_API_URL"),
		ClientID:                os.Getenv("OAUTH2_CLIENT_ID"),
		ClientSecret:            os.Getenv("OAUTH2_CLIENT_SECRET"),
		Scope:                   os.Getenv("OAUTH2_SCOPE"),
		RemembererName:          getenv("OAUTH2_REMEMBERER_NAME", "session"),
		ProfileAPIUserField:     os.Getenv("OAUTH2_PROFILE_API_USER_FIELD"),
		ProfileAPIFullnameField: os.Getenv("OAUTH2_PROFILE_API_FULLNAME_FIELD"),
		ProfileAPIMailField:     os.Getenv("OAUTH2_PROFILE_API_MAIL_FIELD"),
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
