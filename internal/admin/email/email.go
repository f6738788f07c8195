// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package email manages the vault's outgoing SMTP configuration.
//
// Every call needs an admin session and goes through the shared API client,
// so an expired access credential is refreshed like anywhere else.
package email

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/legacyvault/internal/apiclient"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/platform/validate"
)

// DefaultSMTPPort is offered for a configuration that has never been saved.
const DefaultSMTPPort = 587

// Settings is the SMTP configuration document.
type Settings struct {
	ID           string    `json:"id,omitempty"`
	SMTPHost     string    `json:"smtpHost"`
	SMTPPort     int       `json:"smtpPort"`
	SMTPSecure   bool      `json:"smtpSecure"`
	SMTPUser     string    `json:"smtpUser"`
	SMTPPassword string    `json:"smtpPassword"`
	FromName     string    `json:"fromName"`
	FromEmail    string    `json:"fromEmail"`
	IsActive     bool      `json:"isActive,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// Validate checks the settings before they are sent.
func (settings Settings) Validate() error {
	fromEmail := validate.NormalizeEmail(settings.FromEmail)

	validator := &validate.Validator{}
	validator.Required("smtpHost", settings.SMTPHost).
		Range("smtpPort", settings.SMTPPort, 1, 65535).
		Required("fromEmail", fromEmail)
	if fromEmail != "" {
		validator.Email("fromEmail", fromEmail)
	}
	return validator.Err()
}

type settingsData struct {
	Settings *Settings `json:"settings"`
}

type sendTestRequest struct {
	Email string `json:"email"`
}

// Service wraps the email configuration endpoints.
type Service struct {
	client *apiclient.Client
	logger *slog.Logger
}

// NewService constructs a [Service].
func NewService(client *apiclient.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger.With(slog.String("component", "email_settings"))}
}

/*
Get loads the current configuration.

The stored password is never returned; an unconfigured server yields defaults
and false.
*/
func (service *Service) Get(ctx context.Context) (Settings, bool, error) {
	data, err := apiclient.Call[settingsData](ctx, service.client, &apiclient.Request{
		Method: http.MethodGet,
		Path:   constants.EndpointEmailSettings,
	})
	if err != nil {
		return Settings{}, false, err
	}
	if data.Settings == nil {
		return Settings{SMTPPort: DefaultSMTPPort}, false, nil
	}

	settings := *data.Settings
	settings.SMTPPassword = ""
	return settings, true, nil
}

// Save validates and stores settings. An empty password keeps the stored one.
func (service *Service) Save(ctx context.Context, settings Settings) (string, error) {
	if err := settings.Validate(); err != nil {
		return "", err
	}
	settings.FromEmail = validate.NormalizeEmail(settings.FromEmail)

	message, err := apiclient.CallMessage(ctx, service.client, &apiclient.Request{
		Method: http.MethodPost,
		Path:   constants.EndpointEmailSettings,
		Body:   settings,
	})
	if err != nil {
		return "", err
	}

	service.logger.InfoContext(ctx, "email_settings_saved", slog.String("smtp_host", settings.SMTPHost))
	return message, nil
}

// TestConnection asks the server to open an SMTP connection and returns its verdict.
func (service *Service) TestConnection(ctx context.Context) (string, error) {
	return apiclient.CallMessage(ctx, service.client, &apiclient.Request{
		Method: http.MethodPost,
		Path:   constants.EndpointEmailTestConnection,
	})
}

// SendTest asks the server to send a test message to recipient.
func (service *Service) SendTest(ctx context.Context, recipient string) (string, error) {
	recipient = validate.NormalizeEmail(recipient)

	validator := &validate.Validator{}
	validator.Required("email", recipient)
	if recipient != "" {
		validator.Email("email", recipient)
	}
	if err := validator.Err(); err != nil {
		return "", err
	}

	return apiclient.CallMessage(ctx, service.client, &apiclient.Request{
		Method: http.MethodPost,
		Path:   constants.EndpointEmailSendTest,
		Body:   sendTestRequest{Email: recipient},
	})
}
