package solana

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFile struct {
	writeErr error
	closeErr error
	closed   bool
}

func (f *failingFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *failingFile) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteKeypairFile(t *testing.T) {
	cases := []struct {
		name    string
		file    *failingFile
		wantErr error
		kept    bool
	}{
		{name: "ok", file: &failingFile{}, kept: true},
		{name: "write fails", file: &failingFile{writeErr: errors.New("disk full")}, wantErr: errors.New("disk full")},
		{name: "close fails", file: &failingFile{closeErr: errors.New("io error")}, wantErr: errors.New("io error")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "authority.json")
			require.NoError(t, os.WriteFile(path, []byte("[1,2"), 0o600))

			err := writeKeypairFile(tc.file, path, []byte("[1,2,3]"))
			assert.True(t, tc.file.closed)

			_, statErr := os.Stat(path)
			if tc.kept {
				require.NoError(t, err)
				assert.NoError(t, statErr)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr.Error())
			assert.ErrorIs(t, statErr, os.ErrNotExist, "partial keypair file must be removed")
		})
	}
}
