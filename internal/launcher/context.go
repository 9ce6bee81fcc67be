package launcher

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crewhub/workspace/internal/gerrors"
)

// skipped at the build context root
var contextExcludes = map[string]bool{
	".git":       true,
	"Dockerfile": true,
}

// TarContext packs the build context for the engine: the rendered
// Dockerfile first, then the dependency manifest, then the rest of the
// application tree.
func (s *Spec) TarContext() (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	dockerfile := []byte(s.RenderDockerfile())
	if err := writeTarFile(tw, DockerfileName, dockerfile); err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(s.Context, s.Build.DependencyManifest)
	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, gerrors.Wrap(err)
	}
	if err := writeTarFile(tw, s.Build.DependencyManifest, manifest); err != nil {
		return nil, err
	}

	err = filepath.Walk(s.Context, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.Context, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		root := strings.SplitN(rel, "/", 2)[0]
		if contextExcludes[root] {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || rel == s.Build.DependencyManifest {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return writeTarFile(tw, rel, content)
	})
	if err != nil {
		return nil, gerrors.Wrap(err)
	}

	if err := tw.Close(); err != nil {
		return nil, gerrors.Wrap(err)
	}
	return &buf, nil
}

func writeTarFile(tw *tar.Writer, name string, content []byte) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return gerrors.Wrap(err)
	}
	if _, err := tw.Write(content); err != nil {
		return gerrors.Wrap(err)
	}
	return nil
}
