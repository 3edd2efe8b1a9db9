package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/mail"
	"github.com/hackgods/clinic-booking/internal/storage"
)

func loadAWS(ctx context.Context, cfg config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func newMailSender(ctx context.Context, cfg config.Config, logger zerolog.Logger) (mail.Sender, error) {
	logger = logger.With().Str("email_provider", cfg.EmailProvider).Logger()

	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := loadAWS(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return mail.NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.EmailFrom, cfg.EmailFromName, logger), nil
	case "sendgrid":
		if s := mail.NewSendGridSender(mail.SendGridConfig{
			APIKey:    cfg.SendGridKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s, nil
		}
		logger.Warn().Msg("SENDGRID_API_KEY missing; emails will only be logged")
	case "log":
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
	return mail.NewLogSender(logger), nil
}

// newPresigner leaves uploads disabled when no bucket is configured.
func newPresigner(ctx context.Context, cfg config.Config) (*storage.Presigner, error) {
	if cfg.UploadBucket == "" {
		return storage.NewPresigner(nil, "", cfg.AWSRegion), nil
	}
	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewPresigner(s3.NewFromConfig(awsCfg), cfg.UploadBucket, cfg.AWSRegion), nil
}
