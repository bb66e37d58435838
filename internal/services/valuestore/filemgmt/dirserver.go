package filemgmt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
)

// DirServer answers ReadFile from a local directory laid out as
// <root>/<path>/<file name>. Site and drive are ignored. File names are
// single path elements and reads cannot escape root.
type DirServer struct {
	root   *os.Root
	logger zerolog.Logger
}

// NewDirServer opens dir as the served root.
func NewDirServer(dir string, logger zerolog.Logger) (*DirServer, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open file root %s: %w", dir, err)
	}
	return &DirServer{root: root, logger: logger}, nil
}

// Close releases the root directory.
func (s *DirServer) Close() error {
	return s.root.Close()
}

func (s *DirServer) ReadFile(_ context.Context, req *ReadFileRequest) (*ReadFileResponse, error) {
	name := strings.TrimSpace(req.FileName)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeMissingParameter, "file name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == ".." {
		return nil, apperrors.New(apperrors.CodeFileNotFound, fmt.Sprintf("file %s not found", name))
	}
	rel := path.Join(strings.Trim(req.Path, "/"), name)

	content, err := s.root.ReadFile(rel)
	switch {
	case err == nil:
		s.logger.Debug().Str("file", rel).Int("bytes", len(content)).Msg("served file")
		return &ReadFileResponse{Content: content}, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, apperrors.Wrap(apperrors.CodeFileNotFound, fmt.Sprintf("file %s not found", rel), err).
			With("file_name", name)
	default:
		s.logger.Warn().Str("file", rel).Err(err).Msg("read file")
		return nil, apperrors.Wrap(apperrors.CodeUnknown, fmt.Sprintf("read %s", rel), err)
	}
}
