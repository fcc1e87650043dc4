package prompt

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"pvault/internal/errors"
)

// Export writes a zstd-compressed tar archive of one prompt's history to
// w: the current source file as source.md plus every version as
// versions/<n>.md. Works against any backend since contents are read
// through the storage port.
func (s *Service) Export(key string, w io.Writer) error {
	ref, err := s.store.GetRef(key)
	if err != nil {
		return err
	}

	infos, err := s.store.List()
	if err != nil {
		return err
	}
	var versions []int
	for _, info := range infos {
		if info.Ref.Key != key {
			continue
		}
		for _, v := range info.Versions {
			versions = append(versions, v.Version)
		}
	}
	if len(versions) == 0 {
		return errors.VersionNotFound(fmt.Sprintf("no versions for key: %s", key))
	}

	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	tw := tar.NewWriter(enc)
	now := time.Now()

	addFile := func(name, content string) error {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(content)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing archive header: %w", err)
		}
		if _, err := io.WriteString(tw, content); err != nil {
			return fmt.Errorf("writing archive entry: %w", err)
		}
		return nil
	}

	// Source file may legitimately be gone; versions alone still export.
	if source, err := os.ReadFile(ref.SourceFile); err == nil {
		if err := addFile(key+"/source.md", string(source)); err != nil {
			return err
		}
	}

	for _, n := range versions {
		content, err := s.store.ReadVersion(key, n)
		if err != nil {
			return err
		}
		if err := addFile(fmt.Sprintf("%s/versions/%d.md", key, n), content); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing compression: %w", err)
	}
	return nil
}
