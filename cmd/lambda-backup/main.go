package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/christophergentle/mooddiary/internal/backup"
	lambdapkg "github.com/christophergentle/mooddiary/internal/lambda"
	"github.com/christophergentle/mooddiary/internal/logging"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/sirupsen/logrus"
)

// Event represents the EventBridge event structure
type Event struct {
	Source string `json:"source"`
	Time   string `json:"time"`
}

// Response represents the Lambda response
type Response struct {
	StatusCode int                     `json:"statusCode"`
	Body       string                  `json:"body"`
	Result     *lambdapkg.BackupResult `json:"result,omitempty"`
}

// HandleRequest is the main Lambda handler
func HandleRequest(ctx context.Context, event Event) (Response, error) {
	logrus.WithFields(logrus.Fields{"source": event.Source, "time": event.Time}).Info("Received event")

	configLoader, err := lambdapkg.NewSSMConfigLoader(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to create SSM config loader")
		return Response{
			StatusCode: 500,
			Body:       "Failed to initialize configuration loader",
		}, nil
	}

	cfg, err := configLoader.LoadConfig(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to load configuration")
		return Response{
			StatusCode: 500,
			Body:       "Failed to load configuration from SSM",
		}, nil
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, logging.FormatJSON); err != nil {
		logrus.WithError(err).Warn("Invalid log settings, keeping defaults")
	}

	store, err := state.NewDynamoStore(ctx, cfg.Store.DynamoTable)
	if err != nil {
		logrus.WithError(err).Error("Failed to create DynamoDB store")
		return Response{
			StatusCode: 500,
			Body:       "Failed to initialize entry store",
		}, nil
	}
	defer store.Close()

	uploader, err := backup.NewS3Client(ctx, cfg.Backup.S3Bucket)
	if err != nil {
		logrus.WithError(err).Error("Failed to create S3 client")
		return Response{
			StatusCode: 500,
			Body:       "Failed to initialize S3 client",
		}, nil
	}

	result, err := lambdapkg.NewBackupRunner(store, uploader, cfg).RunBackup(ctx)
	if err != nil {
		logrus.WithError(err).Error("Backup failed")
		return Response{
			StatusCode: 500,
			Body:       "Backup failed: " + err.Error(),
			Result:     result,
		}, nil
	}

	logrus.WithField("entries", result.EntriesExported).Info("Backup completed successfully")
	return Response{
		StatusCode: 200,
		Body:       "Backup completed successfully",
		Result:     result,
	}, nil
}

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	lambda.Start(HandleRequest)
}
