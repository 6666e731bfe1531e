package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:             "development",
		Port:            "8080",
		JWTSecret:       "secure-secret-at-least-32-chars-long",
		DBDriver:        "postgres",
		DBPassword:      "secure-password",
		DBSSLMode:       "require",
		StorageProvider: StorageS3,
		S3Region:        "us-east-1",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.JWTSecret = DefaultJWTSecret
	assert.Error(t, c.Validate())

	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c.JWTSecret = "secure-secret-at-least-32-chars-long"
	c.DBPassword = "password"
	assert.Error(t, c.Validate())

	c.DBDriver = "sqlite"
	assert.NoError(t, c.Validate(), "sqlite deployments have no DB password")
}

func TestConfig_ValidateStorage(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"s3 without bucket leaves uploads off", func(c *Config) { c.S3Bucket = "" }, false},
		{"s3 bucket without region", func(c *Config) { c.S3Bucket = "media"; c.S3Region = "" }, true},
		{"cloudinary missing secret", func(c *Config) {
			c.StorageProvider = StorageCloudinary
			c.CloudinaryCloudName = "demo"
			c.CloudinaryAPIKey = "key"
		}, true},
		{"cloudinary complete", func(c *Config) {
			c.StorageProvider = StorageCloudinary
			c.CloudinaryCloudName = "demo"
			c.CloudinaryAPIKey = "key"
			c.CloudinaryAPISecret = "secret"
		}, false},
		{"unknown provider", func(c *Config) { c.StorageProvider = "gcs" }, true},
		{"unknown db driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"unknown schema mode", func(c *Config) { c.DBSchemaMode = "yolo" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_StorageConfigured(t *testing.T) {
	c := validConfig()
	assert.False(t, c.StorageConfigured())

	c.S3Bucket = "media"
	assert.True(t, c.StorageConfigured())

	c.StorageProvider = StorageCloudinary
	c.CloudinaryCloudName = "demo"
	assert.True(t, c.StorageConfigured())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("STORAGE_PROVIDER")
	defer os.Unsetenv("APP_BASE_URL")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("STORAGE_PROVIDER", " Cloudinary ")
	os.Setenv("APP_BASE_URL", "https://beam.example.com/")
	os.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	os.Setenv("CLOUDINARY_API_KEY", "key")
	os.Setenv("CLOUDINARY_API_SECRET", "secret")
	defer os.Unsetenv("CLOUDINARY_CLOUD_NAME")
	defer os.Unsetenv("CLOUDINARY_API_KEY")
	defer os.Unsetenv("CLOUDINARY_API_SECRET")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, StorageCloudinary, c.StorageProvider)
	assert.Equal(t, "https://beam.example.com", c.AppBaseURL)
	assert.Equal(t, "beam-api", c.JWTIssuer)
	assert.Equal(t, 2, c.NotifyWorkers)
}
