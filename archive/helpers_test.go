package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func newZipWriterWith(w io.Writer, name string, data []byte) error {
	zw := zip.NewWriter(w)
	if err := addFile(zw, name, data); err != nil {
		return err
	}
	return zw.Close()
}

func rewriteWithout(t *testing.T, b []byte, skip string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		if f.Name == skip {
			continue
		}
		data, err := readFile(f)
		require.NoError(t, err)
		require.NoError(t, addFile(zw, f.Name, data))
	}
	require.NoError(t, zw.Close())
	return out.Bytes()
}
