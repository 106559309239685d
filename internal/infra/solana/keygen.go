// internal/infra/solana/keygen.go
package solana

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blocto/solana-go-sdk/types"
)

var ErrKeypairFileExists = errors.New("keypair: file already exists")

// GenerateKeypairFile writes a fresh solana-keygen compatible keypair to path.
// An existing file is never overwritten.
func GenerateKeypairFile(path string) (types.Account, error) {
	acc := types.NewAccount()
	data, err := EncodeKeypairJSON(acc)
	if err != nil {
		return types.Account{}, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return types.Account{}, fmt.Errorf("%w: %s", ErrKeypairFileExists, path)
		}
		return types.Account{}, fmt.Errorf("keypair: create %s: %w", path, err)
	}
	if err := writeKeypairFile(f, path, data); err != nil {
		return types.Account{}, err
	}
	return acc, nil
}

// writeKeypairFile writes and closes f. On failure the partial file at path is removed.
func writeKeypairFile(f io.WriteCloser, path string, data []byte) error {
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr == nil && cerr == nil {
		return nil
	}
	_ = os.Remove(path)
	if werr != nil {
		return fmt.Errorf("keypair: write %s: %w", path, werr)
	}
	return fmt.Errorf("keypair: close %s: %w", path, cerr)
}
