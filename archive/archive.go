package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mu/common"

	"github.com/klauspost/compress/zstd"
	"github.com/kr/pretty"
	"golang.org/x/mod/semver"
	"google.golang.org/protobuf/encoding/protowire"
)

// magic begins every archive file
var magic = []byte("MUC\x01")

var (
	// ErrCorrupt is returned for archives that cannot be decoded
	ErrCorrupt = errors.New("corrupt archive")

	// ErrVersion is returned for archives written by an incompatible version
	ErrVersion = errors.New("incompatible archive version")
)

// Write encodes an archive.  The header holds the magic and the archive
// version; the records follow, zstd compressed.
func Write(w io.Writer, a *Archive) error {
	version := a.Version
	if version == "" {
		version = common.ArchiveVersion
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	payload := enc.EncodeAll(marshalArchive(a), nil)
	enc.Close()

	header := append([]byte(nil), magic...)
	header = protowire.AppendString(header, version)

	if _, err := w.Write(header); err != nil {
		return err
	}

	_, err = w.Write(payload)
	return err
}

// Read decodes an archive, checking that its version is compatible
func Read(r io.Reader) (*Archive, error) {
	buff, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(buff, magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	buff = buff[len(magic):]

	version, n := protowire.ConsumeString(buff)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
	}
	buff = buff[n:]

	if err := CheckVersion(version); err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	payload, err := dec.DecodeAll(buff, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	a, err := unmarshalArchive(payload)
	if err != nil {
		return nil, err
	}
	a.Version = version

	return a, nil
}

// CheckVersion accepts any archive version sharing the major version of
// common.ArchiveVersion
func CheckVersion(version string) error {
	if !semver.IsValid(version) {
		return fmt.Errorf("%w: `%s` is not a version", ErrCorrupt, version)
	}

	if semver.Major(version) != semver.Major(common.ArchiveVersion) {
		return fmt.Errorf("%w: archive is %s, runtime reads %s", ErrVersion, version, semver.Major(common.ArchiveVersion))
	}

	return nil
}

// -----------------------------------------------------------------------------

// WriteFile writes an archive to path.  The file is written next to its
// destination and renamed into place so readers never see a partial archive.
func WriteFile(path string, a *Archive) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	if err := Write(f, a); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}

	return os.Rename(f.Name(), path)
}

// ReadFile reads the archive at path
func ReadFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Dump formats the records of an archive for debugging
func Dump(a *Archive) string {
	return pretty.Sprint(a)
}
