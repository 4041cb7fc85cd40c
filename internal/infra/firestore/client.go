// internal/infra/firestore/client.go
package firestoreinfra

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ClientWrapper holds a Firestore client together with its project.
type ClientWrapper struct {
	Client    *firestore.Client
	ProjectID string
}

// NewClient uses Application Default Credentials when credentialsFile is empty.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*ClientWrapper, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("firestore: project id is empty")
	}

	var opts []option.ClientOption
	if f := strings.TrimSpace(credentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}

	zap.L().Info("firestore connected", zap.String("namespace", "boot"), zap.String("project", projectID))
	return &ClientWrapper{Client: client, ProjectID: projectID}, nil
}

func (cw *ClientWrapper) Close() error {
	if cw == nil || cw.Client == nil {
		return nil
	}
	return cw.Client.Close()
}
