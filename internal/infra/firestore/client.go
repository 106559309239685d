// internal/infra/firestore/client.go
package firestoreinfra

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// ClientWrapper holds a Firestore client and the project it is bound to.
type ClientWrapper struct {
	Client    *firestore.Client
	ProjectID string
}

// NewClient uses application default credentials when credentialsFile is empty.
func NewClient(ctx context.Context, projectID, credentialsFile string, logger logrus.FieldLogger) (*ClientWrapper, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	if logger != nil {
		logger.WithField("project", projectID).Info("firestore connected")
	}
	return &ClientWrapper{Client: client, ProjectID: projectID}, nil
}

func (cw *ClientWrapper) Close() error {
	if cw == nil || cw.Client == nil {
		return nil
	}
	return cw.Client.Close()
}
