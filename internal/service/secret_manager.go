package service

import (
	"context"
	"fmt"
	"strings"

	"courseforge/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretManagerService reads service credentials from Google Secret Manager.
type SecretManagerService interface {
	GetSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerService(ctx context.Context, cfg *config.Config) (SecretManagerService, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretManagerService{
		client:    client,
		projectID: cfg.GCPProjectID,
	}, nil
}

// GetSecret returns the latest version of the named secret.
func (s *secretManagerService) GetSecret(ctx context.Context, name string) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}

	return strings.TrimSpace(string(result.Payload.Data)), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

// SecretGetter is the part of SecretManagerService that key resolution needs.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// ResolveAPIKey returns value when it is set, otherwise the secret called secretName. A nil
// secrets source leaves the key empty.
func ResolveAPIKey(ctx context.Context, secrets SecretGetter, value, secretName string) (string, error) {
	if value != "" || secrets == nil || secretName == "" {
		return value, nil
	}
	key, err := secrets.GetSecret(ctx, secretName)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", secretName, err)
	}
	return key, nil
}
