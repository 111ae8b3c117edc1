package main

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// {"A": true}
var singleKey = []byte{
	'b', 'p', 'l', 'i', 's', 't', '0', '0',
	0xD1, 0x01, 0x02,
	0x51, 'A',
	0x09,
	0x08, 0x0B, 0x0D,
	0, 0, 0, 0, 0, 0, 1, 1,
	0, 0, 0, 0, 0, 0, 0, 3,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0x0E,
}

func plistFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "single.plist")
	require.NoError(t, os.WriteFile(path, singleKey, 0o600))
	return path
}

func runPly(stdin []byte, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	status := run(args, bytes.NewReader(stdin), &stdout, &stderr)
	return status, stdout.String(), stderr.String()
}

func TestRunFormats(t *testing.T) {
	path := plistFile(t)

	status, out, _ := runPly(nil, path)
	require.Equal(t, 0, status)
	require.Equal(t, "dict(1) {\n\t\"A\": bool(true)\n}\n", out)

	status, out, _ = runPly(nil, "-f", "json", "--indent=", path)
	require.Equal(t, 0, status)
	require.Equal(t, "{\"A\":true}\n", out)

	status, out, _ = runPly(nil, "--format=yaml", path)
	require.Equal(t, 0, status)
	require.Equal(t, "A: true\n", out)

	status, out, _ = runPly(singleKey, "-f", "json", "--indent=", "-")
	require.Equal(t, 0, status)
	require.Equal(t, "{\"A\":true}\n", out)
}

func TestRunErrors(t *testing.T) {
	path := plistFile(t)

	status, _, errOut := runPly(nil, "--format", "xml", path)
	require.Equal(t, 2, status)
	require.True(t, strings.HasPrefix(errOut, "ply:"), errOut)

	status, out, errOut := runPly(nil)
	require.Equal(t, 2, status)
	require.Empty(t, out)
	require.Contains(t, errOut, "FILE")

	status, _, errOut = runPly(nil, filepath.Join(t.TempDir(), "missing.plist"))
	require.Equal(t, 1, status)
	require.Contains(t, errOut, "cannot convert property list")

	status, out, _ = runPly(nil, "--help")
	require.Equal(t, 0, status)
	require.Contains(t, out, "--format")
}

func TestRunLimitFromEnvironment(t *testing.T) {
	path := plistFile(t)
	t.Setenv("PLY_MAX_OBJECTS", "2")

	status, out, errOut := runPly(nil, path)
	require.Equal(t, 1, status)
	require.Empty(t, out)
	require.Contains(t, errOut, "object count 3 exceeds limit 2")
}

func TestRunKeyedRequiresArchive(t *testing.T) {
	status, _, errOut := runPly(nil, "-k", plistFile(t))
	require.Equal(t, 1, status)
	require.Contains(t, errOut, "unexpected archiver")
}

// assemble lays out objects with one-byte offsets and references; the first
// object is the top one.
func assemble(objects ...[]byte) []byte {
	buf := []byte("bplist00")
	var table []byte
	for _, obj := range objects {
		table = append(table, uint8(len(buf)))
		buf = append(buf, obj...)
	}
	tableOffset := len(buf)
	buf = append(buf, table...)
	buf = append(buf, 0, 0, 0, 0, 0, 0, 1, 1)
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0, uint8(len(objects)))
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0)
	return append(buf, 0, 0, 0, 0, 0, 0, 0, uint8(tableOffset))
}

func ascii(s string) []byte {
	if len(s) < 15 {
		return append([]byte{0x50 | uint8(len(s))}, s...)
	}
	return append([]byte{0x5F, 0x10, uint8(len(s))}, s...)
}

// {"$archiver": "NSKeyedArchiver", "$top": {"root": UID(1)}, "$objects": ["$null", "hi"]}
var keyedArchive = assemble(
	[]byte{0xD3, 1, 2, 3, 4, 5, 6},
	ascii("$archiver"),
	ascii("$top"),
	ascii("$objects"),
	ascii("NSKeyedArchiver"),
	[]byte{0xD1, 7, 8},
	[]byte{0xA2, 9, 10},
	ascii("root"),
	[]byte{0x80, 0x01},
	ascii("$null"),
	ascii("hi"),
)

func TestRunKeyedArchive(t *testing.T) {
	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	_, err := zw.Write(keyedArchive)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	for name, data := range map[string][]byte{"plain": keyedArchive, "gzip": zipped.Bytes()} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "archive.plist")
			require.NoError(t, os.WriteFile(path, data, 0o600))

			status, out, errOut := runPly(nil, "-k", "-f", "json", path)
			require.Equal(t, 0, status, errOut)
			require.Equal(t, "\"hi\"\n", out)

			status, out, errOut = runPly(data, "-k", "-f", "json", "-")
			require.Equal(t, 0, status, errOut)
			require.Equal(t, "\"hi\"\n", out)
		})
	}
}
