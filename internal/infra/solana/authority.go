// internal/infra/solana/authority.go
package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/googleapis/gax-go/v2"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrKeypairSourceEmpty = errors.New("keypair: source is empty")
	ErrKeypairNotFound    = errors.New("keypair: secret not found")
	ErrKeypairInvalid     = errors.New("keypair: invalid secret key bytes")
)

// SecretAccessor is the Secret Manager call used to read keypairs.
type SecretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *smpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*smpb.AccessSecretVersionResponse, error)
}

// KeypairLoader restores signing accounts from a keypair file, a Secret
// Manager version name or an inline base58 secret key.
type KeypairLoader struct {
	Secrets SecretAccessor
	logger  logrus.FieldLogger
}

func NewKeypairLoader(secrets SecretAccessor, logger logrus.FieldLogger) *KeypairLoader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KeypairLoader{Secrets: secrets, logger: logger.WithField("component", "keypair")}
}

// NewSecretManagerClient opens a Secret Manager client. credentialsFile may
// be empty to use application default credentials.
func NewSecretManagerClient(ctx context.Context, credentialsFile string) (*secretmanager.Client, error) {
	var opts []option.ClientOption
	if f := strings.TrimSpace(credentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	c, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	return c, nil
}

// Load resolves source in this order:
//   - an existing file path (solana-keygen JSON)
//   - "projects/<id>/secrets/<name>/versions/<v>"
//   - a base58 encoded 64-byte secret key
func (l *KeypairLoader) Load(ctx context.Context, source string) (types.Account, error) {
	src := strings.TrimSpace(source)
	if src == "" {
		return types.Account{}, ErrKeypairSourceEmpty
	}

	if st, err := os.Stat(src); err == nil && !st.IsDir() {
		data, err := os.ReadFile(src)
		if err != nil {
			return types.Account{}, fmt.Errorf("keypair: read %s: %w", src, err)
		}
		acc, err := DecodeKeypair(data)
		if err != nil {
			return types.Account{}, err
		}
		l.logger.WithField("pubkey", acc.PublicKey.ToBase58()).Debug("loaded keypair from file")
		return acc, nil
	}

	if strings.HasPrefix(src, "projects/") {
		return l.loadSecret(ctx, src)
	}

	return DecodeKeypair([]byte(src))
}

func (l *KeypairLoader) loadSecret(ctx context.Context, name string) (types.Account, error) {
	if l.Secrets == nil {
		return types.Account{}, fmt.Errorf("keypair: secret manager not configured for %s", name)
	}
	resp, err := l.Secrets.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Account{}, fmt.Errorf("%w: %s", ErrKeypairNotFound, name)
		}
		return types.Account{}, fmt.Errorf("AccessSecretVersion: %w", err)
	}
	if resp == nil || resp.GetPayload() == nil || len(resp.GetPayload().GetData()) == 0 {
		return types.Account{}, fmt.Errorf("%w: %s", ErrKeypairNotFound, name)
	}

	acc, err := DecodeKeypair(resp.GetPayload().GetData())
	if err != nil {
		return types.Account{}, err
	}
	l.logger.WithFields(logrus.Fields{
		"secret": name,
		"pubkey": acc.PublicKey.ToBase58(),
	}).Info("loaded authority from Secret Manager")
	return acc, nil
}

// DecodeKeypair accepts a JSON byte array ([u8;64]) or a base58 secret key.
func DecodeKeypair(data []byte) (types.Account, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return types.Account{}, ErrKeypairSourceEmpty
	}

	var keyBytes []byte
	if strings.HasPrefix(s, "[") {
		b, err := decodeKeypairJSON([]byte(s))
		if err != nil {
			return types.Account{}, err
		}
		keyBytes = b
	} else {
		b, err := base58.Decode(s)
		if err != nil {
			return types.Account{}, fmt.Errorf("%w: base58: %v", ErrKeypairInvalid, err)
		}
		keyBytes = b
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return types.Account{}, fmt.Errorf("%w: got %d bytes, want %d", ErrKeypairInvalid, len(keyBytes), ed25519.PrivateKeySize)
	}

	acc, err := types.AccountFromBytes(keyBytes)
	if err != nil {
		return types.Account{}, fmt.Errorf("AccountFromBytes: %w", err)
	}
	return acc, nil
}

// decodeKeypairJSON reads [int,...] with each element in byte range.
func decodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("%w: unmarshal keypair json: %v", ErrKeypairInvalid, err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: byte out of range at %d: %d", ErrKeypairInvalid, i, v)
		}
		b[i] = byte(v)
	}
	return b, nil
}

// EncodeKeypairJSON renders the solana-keygen file format.
func EncodeKeypairJSON(acc types.Account) ([]byte, error) {
	if len(acc.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrKeypairInvalid, len(acc.PrivateKey))
	}
	secret := make([]int, len(acc.PrivateKey))
	for i, b := range acc.PrivateKey {
		secret[i] = int(b)
	}
	return json.Marshal(secret)
}
