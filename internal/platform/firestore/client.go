package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// emulatorHostEnv is honored by the Firestore SDK itself; credentials are
// skipped when it is set.
const emulatorHostEnv = "FIRESTORE_EMULATOR_HOST"

// Credentials is the service account JSON and a label for where it was read.
type Credentials struct {
	JSON   []byte
	Source string
}

// New opens a Firestore client for the monitoring collections.
func New(ctx context.Context, projectID string, creds Credentials) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is empty")
	}
	opts, err := clientOptions(creds, os.Getenv(emulatorHostEnv))
	if err != nil {
		return nil, err
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	return client, nil
}

func clientOptions(creds Credentials, emulatorHost string) ([]option.ClientOption, error) {
	if emulatorHost != "" {
		return nil, nil
	}
	if len(creds.JSON) == 0 {
		return nil, fmt.Errorf("no firestore credentials (source %q)", creds.Source)
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds.JSON)}, nil
}

// Ping reads at most one document from each collection. Empty collections pass.
func Ping(ctx context.Context, client *firestore.Client, collections ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, name := range collections {
		iter := client.Collection(name).Limit(1).Documents(ctx)
		_, err := iter.Next()
		iter.Stop()
		if err != nil && !errors.Is(err, iterator.Done) {
			return fmt.Errorf("read %s: %w", name, err)
		}
	}
	return nil
}
