// Package bootstrap provides dependency initialization for the framesnap
// binaries: the processing worker, the intake API and the notification
// dispatcher.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framesnap/framesnap/internal/archive"
	"github.com/framesnap/framesnap/internal/blob"
	"github.com/framesnap/framesnap/internal/config"
	"github.com/framesnap/framesnap/internal/frames"
	"github.com/framesnap/framesnap/internal/intake"
	"github.com/framesnap/framesnap/internal/ledger"
	"github.com/framesnap/framesnap/internal/mailer"
	"github.com/framesnap/framesnap/internal/notify"
	"github.com/framesnap/framesnap/internal/processing"
	"github.com/framesnap/framesnap/internal/queue"
)

// Static errors for missing per-binary configuration.
var (
	// ErrQueueURLRequired is returned when QUEUE_URL is not set.
	ErrQueueURLRequired = errors.New("bootstrap: QUEUE_URL is required")
	// ErrNotifyQueueURLRequired is returned when NOTIFY_QUEUE_URL is not set.
	ErrNotifyQueueURLRequired = errors.New("bootstrap: NOTIFY_QUEUE_URL is required")
	// ErrSenderEmailRequired is returned when SENDER_EMAIL is not set.
	ErrSenderEmailRequired = errors.New("bootstrap: SENDER_EMAIL is required")
	// ErrUserPoolIDRequired is returned when COGNITO_USER_POOL_ID is not set.
	ErrUserPoolIDRequired = errors.New("bootstrap: COGNITO_USER_POOL_ID is required")
)

// Closer releases resources held by a dependency set.
type Closer func()

func nopCloser() {}

// loadAWSConfig builds the shared AWS SDK configuration.
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// newS3Client creates the S3 client, honoring a custom endpoint for
// S3-compatible stores.
func newS3Client(awsCfg aws.Config, cfg *config.Config) *s3.Client {
	var opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, opts...)
}

// newLedger creates the ledger backend selected by the configuration:
// DynamoDB when LEDGER_TABLE is set, Postgres when DATABASE_URL is set,
// otherwise the in-memory ledger.
func newLedger(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (ledger.Ledger, Closer, error) {
	switch {
	case cfg.LedgerTable != "":
		logger.Info("DynamoDB ledger configured",
			slog.String("table", cfg.LedgerTable),
		)
		return ledger.NewDynamoLedger(dynamodb.NewFromConfig(awsCfg), cfg.LedgerTable), nopCloser, nil

	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		led := ledger.NewPostgresLedger(pool)
		if err := led.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Postgres ledger configured")
		return led, pool.Close, nil

	default:
		logger.Warn("no ledger backend configured, using in-memory ledger")
		return ledger.NewMemoryLedger(), nopCloser, nil
	}
}

// WorkerDependencies holds the initialized dependencies of the processing
// worker.
type WorkerDependencies struct {
	Service  *processing.Service
	Consumer *queue.Consumer
	Close    Closer
}

// NewWorkerDependencies wires the processing worker.
func NewWorkerDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*WorkerDependencies, error) {
	if cfg.QueueURL == "" {
		return nil, ErrQueueURLRequired
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	led, closeLedger, err := newLedger(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.NotifyTopicARN != "" {
		notifier = notify.NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.NotifyTopicARN)
	} else {
		logger.Warn("no notification topic configured, outcomes will not be announced")
	}

	svc := processing.NewService(
		led,
		blob.NewS3ClientFromAPI(newS3Client(awsCfg, cfg)),
		frames.NewFFmpegSampler(cfg.FFmpegPath),
		archive.NewZipPackager(),
		notifier,
		logger,
		processing.Config{
			InputBucket:  cfg.InputBucket,
			OutputBucket: cfg.OutputBucket,
			FrameStride:  cfg.FrameStride,
			TempDir:      cfg.TempDir,
		},
	)

	consumer := queue.NewConsumer(sqs.NewFromConfig(awsCfg), cfg.QueueURL, svc.HandleQueueMessage, logger)

	return &WorkerDependencies{
		Service:  svc,
		Consumer: consumer,
		Close:    closeLedger,
	}, nil
}

// IntakeDependencies holds the initialized dependencies of the intake API.
type IntakeDependencies struct {
	Router http.Handler
	Close  Closer
}

// NewIntakeDependencies wires the intake API.
func NewIntakeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*IntakeDependencies, error) {
	if cfg.QueueURL == "" {
		return nil, ErrQueueURLRequired
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	led, closeLedger, err := newLedger(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	s3Client := newS3Client(awsCfg, cfg)
	handlers := intake.NewHandlers(
		led,
		blob.NewS3Presigner(s3Client),
		queue.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.QueueURL),
		cfg.InputBucket,
		logger,
	)

	return &IntakeDependencies{
		Router: intake.NewRouter(handlers, logger),
		Close:  closeLedger,
	}, nil
}

// NotifierDependencies holds the initialized dependencies of the
// notification dispatcher.
type NotifierDependencies struct {
	Dispatcher *mailer.Dispatcher
	Consumer   *queue.Consumer
	Close      Closer
}

// NewNotifierDependencies wires the notification dispatcher.
func NewNotifierDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*NotifierDependencies, error) {
	if cfg.NotifyQueueURL == "" {
		return nil, ErrNotifyQueueURLRequired
	}
	if cfg.SenderEmail == "" {
		return nil, ErrSenderEmailRequired
	}
	if cfg.CognitoUserPoolID == "" {
		return nil, ErrUserPoolIDRequired
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := mailer.NewDispatcher(
		mailer.NewCognitoDirectory(cognitoidentityprovider.NewFromConfig(awsCfg), cfg.CognitoUserPoolID),
		mailer.NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.SenderEmail),
		logger,
	)

	consumer := queue.NewConsumer(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL, dispatcher.HandleQueueMessage, logger)

	return &NotifierDependencies{
		Dispatcher: dispatcher,
		Consumer:   consumer,
		Close:      nopCloser,
	}, nil
}
