package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/valuestore/internal/services/valuestore/cache"
	"github.com/louisbranch/valuestore/internal/services/valuestore/filemgmt"
	"github.com/louisbranch/valuestore/internal/services/valuestore/ingest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeFileService serves workbooks by file name through filemgmt.Reader.
type fakeFileService struct {
	mu       sync.Mutex
	files    map[string][]byte
	err      error
	gate     chan struct{}
	started  chan struct{}
	requests []string
}

func newFakeFileService(files map[string][]byte) *fakeFileService {
	return &fakeFileService{files: files, started: make(chan struct{}, 64)}
}

func (s *fakeFileService) ReadFile(ctx context.Context, req *filemgmt.ReadFileRequest) (*filemgmt.ReadFileResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req.FileName)
	gate, err := s.gate, s.err
	content, ok := s.files[req.FileName]
	s.mu.Unlock()

	s.started <- struct{}{}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no such file %s", req.FileName)
	}
	return &filemgmt.ReadFileResponse{Content: content}, nil
}

func (s *fakeFileService) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *fakeFileService) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type pipeline struct {
	files    *fakeFileService
	clock    *fakeClock
	resolver *Resolver
	worker   *Worker
}

func newPipeline(t *testing.T, files map[string][]byte) *pipeline {
	t.Helper()
	clock := newFakeClock()
	tables, err := cache.New(cache.Options{TTL: time.Minute, Clock: clock.Now})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	service := newFakeFileService(files)
	fetcher := filemgmt.NewFetcher(service, filemgmt.Config{
		Identity: filemgmt.Identity{SiteID: "site", DriveID: "drive", FolderPath: "Värdeförråd"},
		Timeout:  time.Second,
		Logger:   zerolog.Nop(),
	})
	resolver := NewResolver(tables, fetcher, ingest.New(zerolog.Nop()), zerolog.Nop())
	return &pipeline{
		files:    service,
		clock:    clock,
		resolver: resolver,
		worker:   NewWorker(resolver, zerolog.Nop()),
	}
}

// workbook builds an xlsx file whose first sheet holds rows.
func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func ratesWorkbook(t *testing.T) []byte {
	return workbook(t,
		[]any{"Code", "Rate"},
		[]any{"A", 10},
		[]any{"B", 20},
	)
}
