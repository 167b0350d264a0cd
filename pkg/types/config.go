package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"60"`
	MaxBodyBytes    int64  `envconfig:"MAX_BODY_BYTES" default:"33554432"` // 32 MiB

	// Storage backend: "drive" or "s3"
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"drive"`

	// ORG:folderId pairs, comma separated. Replaces the built-in roots when set.
	RootFolders map[string]string `envconfig:"ROOT_FOLDERS"`

	// Google Drive OAuth (installed-app grant)
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken string `envconfig:"GOOGLE_REFRESH_TOKEN"`

	// S3 mirror
	S3Bucket           string `envconfig:"S3_BUCKET"`
	S3ViewLinkTemplate string `envconfig:"S3_VIEW_LINK_TEMPLATE"`

	// SMTP
	MailHost     string `envconfig:"MAIL_HOST" default:"smtp.gmail.com"`
	MailPort     int    `envconfig:"MAIL_PORT" default:"587"`
	MailUser     string `envconfig:"MAIL_USER"`
	MailPassword string `envconfig:"MAIL_PWD"`
}

const (
	StorageBackendDrive = "drive"
	StorageBackendS3    = "s3"
)
