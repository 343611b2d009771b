// Package archive unpacks reference index archives.
package archive

import (
	"archive/tar"
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

var ErrExtract = errors.New("unable to extract archive")

var gzipMagic = []byte{0x1f, 0x8b}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, dstDir string) error
}

// Tar extracts tar archives, gzip-compressed or not.
type Tar struct{}

// Extract implements Extractor. Entries escaping dstDir are rejected.
func (Tar) Extract(ctx context.Context, archivePath, dstDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrapf(ErrExtract, "%s: %v", archivePath, err)
	}
	defer f.Close()

	r, err := decompress(bufio.NewReader(f))
	if err != nil {
		return errors.Wrapf(ErrExtract, "%s: %v", archivePath, err)
	}

	err = untar(ctx, tar.NewReader(r), dstDir)
	if err != nil {
		return errors.Wrapf(err, "%s", archivePath)
	}

	return nil
}

func decompress(br *bufio.Reader) (io.Reader, error) {
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if len(magic) == len(gzipMagic) && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		return gzip.NewReader(br)
	}

	return br, nil
}

func untar(ctx context.Context, tr *tar.Reader, dstDir string) error {
	root, err := filepath.Abs(dstDir)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", dstDir)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(ErrExtract, "%v", err)
		}

		target := filepath.Join(root, hdr.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return errors.Wrapf(ErrExtract, "entry %q escapes %s", hdr.Name, dstDir)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0o755)
		case tar.TypeReg:
			err = writeEntry(target, tr, hdr.FileInfo().Mode().Perm())
		default:
			continue
		}
		if err != nil {
			return errors.Wrapf(ErrExtract, "%s: %v", hdr.Name, err)
		}
	}
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, r)
	if err != nil {
		out.Close()

		return err
	}

	return out.Close()
}

var _ Extractor = Tar{}
