package main

import (
	"context"
	"fmt"

	"driveupload/internal/mailer"
	"driveupload/internal/storage"
	"driveupload/internal/tree"
	"driveupload/internal/upload"
	"driveupload/internal/utils"
	"driveupload/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	switch c.StorageBackend {
	case "":
		c.StorageBackend = types.StorageBackendDrive
	case types.StorageBackendDrive, types.StorageBackendS3:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 60
	}

	return c, nil
}

func newLogger(cfg *types.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

// storageFactory builds a fresh storage client per invocation so missing
// credentials surface on the request that needs them.
func storageFactory(cfg *types.Config) upload.StorageFactory {
	return func(ctx context.Context) (storage.Storage, error) {
		switch cfg.StorageBackend {
		case types.StorageBackendS3:
			awsConfig, err := loadAWSConfig(ctx)
			if err != nil {
				return nil, err
			}
			return storage.NewS3(s3.NewFromConfig(awsConfig), cfg.S3Bucket, cfg.S3ViewLinkTemplate)
		default:
			return storage.NewDrive(ctx, storage.DriveCredentials{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RefreshToken: cfg.GoogleRefreshToken,
			})
		}
	}
}

func mailerFactory(cfg *types.Config, logger *logrus.Logger) upload.MailerFactory {
	return func() (mailer.Mailer, error) {
		return mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUser,
			Password: cfg.MailPassword,
		}, logger)
	}
}

func newUploadService(cfg *types.Config, logger *logrus.Logger) (*upload.Service, *tree.Resolver) {
	resolver := tree.NewResolver(cfg.RootFolders)
	svc := upload.New(logger, resolver, storageFactory(cfg), mailerFactory(cfg, logger))
	return svc, resolver
}

func setup() (*types.Config, *logrus.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, utils.WrapError(err, "failed to load config")
	}
	return cfg, newLogger(cfg), nil
}
