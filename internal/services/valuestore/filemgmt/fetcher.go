package filemgmt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
	"github.com/louisbranch/valuestore/internal/platform/timeouts"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

// Identity locates the value store folder. It is fixed per deployment.
type Identity struct {
	SiteID     string
	DriveID    string
	FolderPath string
}

// Config configures a Fetcher.
type Config struct {
	Identity Identity
	// Timeout bounds each fetch. Zero uses timeouts.FileFetch.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Fetcher reads workbook bytes for a file name.
type Fetcher struct {
	reader   Reader
	identity Identity
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewFetcher builds a Fetcher that reads through reader.
func NewFetcher(reader Reader, cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.FileFetch
	}
	return &Fetcher{
		reader:   reader,
		identity: cfg.Identity,
		timeout:  timeout,
		logger:   cfg.Logger,
	}
}

// Fetch issues one ReadFile call for fileName.
//
// Every RPC-level failure is reported as FILE_NOT_FOUND and marked
// permanent, except deadline and cancellation which are FETCH_FAILED and
// retryable, as is any failure outside the RPC layer.
func (f *Fetcher) Fetch(ctx context.Context, fileName string) ([]byte, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, domain.Permanent(apperrors.New(apperrors.CodeMissingParameter, "file name is required"))
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	resp, err := f.reader.ReadFile(ctx, &ReadFileRequest{
		SiteID:   f.identity.SiteID,
		DriveID:  f.identity.DriveID,
		Path:     f.identity.FolderPath,
		FileName: fileName,
	})
	elapsed := time.Since(start)
	if err != nil {
		f.logger.Debug().Str("file", fileName).Dur("elapsed", elapsed).Err(err).Msg("read file failed")
		return nil, classify(fileName, err)
	}
	f.logger.Debug().Str("file", fileName).Dur("elapsed", elapsed).Int("bytes", len(resp.Content)).Msg("read file")
	return resp.Content, nil
}

func classify(fileName string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return apperrors.Wrap(apperrors.CodeFetchFailed, fmt.Sprintf("fetch %s: %v", fileName, err), err).
			With("file_name", fileName)
	}
	switch st.Code() {
	case codes.DeadlineExceeded, codes.Canceled:
		return apperrors.Wrap(apperrors.CodeFetchFailed, fmt.Sprintf("fetch %s: %s", fileName, st.Message()), err).
			With("file_name", fileName).
			With("grpc_code", st.Code().String())
	default:
		notFound := apperrors.Wrap(apperrors.CodeFileNotFound, fmt.Sprintf("requested value file %s not found", fileName), err).
			With("file_name", fileName).
			With("grpc_code", st.Code().String())
		return domain.Permanent(notFound)
	}
}
