package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quinloq/examgate/config"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/storage"
	"github.com/rs/zerolog/log"
)

// UploadService stages answer-media chunks on local disk and assembles them
// into a single object on finalize. Any chunk may arrive more than once and in
// any order; the staging layout makes re-writes idempotent.
type UploadService interface {
	SaveChunk(fileID string, index, total int, r io.Reader) (*dto.ChunkStatusResponse, error)
	ChunkStatus(fileID string, total int) (*dto.ChunkStatusResponse, error)
	Finalize(ctx context.Context, req dto.FinalizeUploadRequest) (*dto.FinalizeUploadResponse, error)
	// SweepStale removes staging directories untouched past the configured age.
	SweepStale() error
	Start()
	Stop()
}

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type uploadService struct {
	stagingDir string
	staleAfter time.Duration
	store      storage.ObjectStorage
	stop       chan struct{}
	done       chan struct{}
}

func NewUploadService(cfg *config.Config, store storage.ObjectStorage) (UploadService, error) {
	if err := os.MkdirAll(cfg.Upload.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	staleAfter := time.Duration(cfg.Upload.StaleAfterMinutes) * time.Minute
	if staleAfter <= 0 {
		staleAfter = 2 * time.Hour
	}
	return &uploadService{
		stagingDir: cfg.Upload.StagingDir,
		staleAfter: staleAfter,
		store:      store,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

func (s *uploadService) SaveChunk(fileID string, index, total int, r io.Reader) (*dto.ChunkStatusResponse, error) {
	if !fileIDPattern.MatchString(fileID) {
		return nil, fmt.Errorf("%w: invalid file id", ErrBadRequest)
	}
	if total < 1 || index < 0 || index >= total {
		return nil, ErrBadChunkIndex
	}

	dir := filepath.Join(s.stagingDir, fileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}

	// Write to a temp name first so a torn write never counts as a saved chunk.
	tmp, err := os.CreateTemp(dir, "chunk-*")
	if err != nil {
		return nil, fmt.Errorf("create chunk temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write chunk %d: %w", index, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close chunk %d: %w", index, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, fmt.Sprintf("%d.part", index))); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("commit chunk %d: %w", index, err)
	}

	return s.ChunkStatus(fileID, total)
}

func (s *uploadService) ChunkStatus(fileID string, total int) (*dto.ChunkStatusResponse, error) {
	if !fileIDPattern.MatchString(fileID) {
		return nil, fmt.Errorf("%w: invalid file id", ErrBadRequest)
	}
	saved, err := s.savedIndexes(fileID)
	if err != nil {
		if os.IsNotExist(err) {
			return &dto.ChunkStatusResponse{FileID: fileID, Saved: 0, Total: total}, nil
		}
		return nil, err
	}
	complete := total > 0 && len(saved) >= total && s.missingIndexes(saved, total) == nil
	return &dto.ChunkStatusResponse{
		FileID:     fileID,
		Saved:      len(saved),
		Total:      total,
		IsComplete: complete,
	}, nil
}

// Finalize assembles the chunks into one object and ships it to object
// storage. Concurrent finalize calls race on a directory rename; exactly one
// proceeds, the rest see the staging area gone and report accordingly.
func (s *uploadService) Finalize(ctx context.Context, req dto.FinalizeUploadRequest) (*dto.FinalizeUploadResponse, error) {
	if !fileIDPattern.MatchString(req.FileID) {
		return nil, fmt.Errorf("%w: invalid file id", ErrBadRequest)
	}

	saved, err := s.savedIndexes(req.FileID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUploadGone
		}
		return nil, err
	}
	if missing := s.missingIndexes(saved, req.TotalChunks); missing != nil {
		return nil, fmt.Errorf("%w: missing chunks %v", ErrUploadIncomplete, missing)
	}

	dir := filepath.Join(s.stagingDir, req.FileID)
	claimed := dir + ".finalizing"
	if err := os.Rename(dir, claimed); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUploadGone
		}
		return nil, fmt.Errorf("claim upload %s: %w", req.FileID, err)
	}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.concat(claimed, req.TotalChunks, pw))
	}()

	objectName := fmt.Sprintf("answers/%s", req.FileID)
	if req.QuestionID > 0 {
		objectName = fmt.Sprintf("answers/q%d/%s", req.QuestionID, req.FileID)
	}
	mediaURL, err := s.store.Upload(ctx, objectName, pr)
	if err != nil {
		pr.CloseWithError(err)
		// Hand the staging area back so the client can retry the finalize
		// after a transient store failure.
		if rnErr := os.Rename(claimed, dir); rnErr != nil {
			log.Error().Err(rnErr).Str("file_id", req.FileID).Msg("Failed to release upload staging claim")
		}
		return nil, fmt.Errorf("upload assembled object %s: %w", objectName, err)
	}

	// The chunks are deleted only after the store accepted the object.
	if err := os.RemoveAll(claimed); err != nil {
		log.Warn().Err(err).Str("file_id", req.FileID).Msg("Failed to remove finalized staging dir")
	}

	log.Info().Str("file_id", req.FileID).Str("object_name", objectName).Int("chunks", req.TotalChunks).
		Msg("Upload finalized")
	return &dto.FinalizeUploadResponse{ObjectName: objectName, MediaURL: mediaURL}, nil
}

func (s *uploadService) concat(dir string, total int, w io.Writer) error {
	for i := 0; i < total; i++ {
		f, err := os.Open(filepath.Join(dir, fmt.Sprintf("%d.part", i)))
		if err != nil {
			return fmt.Errorf("open chunk %d: %w", i, err)
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read chunk %d: %w", i, err)
		}
	}
	return nil
}

func (s *uploadService) savedIndexes(fileID string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.stagingDir, fileID))
	if err != nil {
		return nil, err
	}
	var saved []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".part") {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(name, ".part"))
		if err != nil {
			continue
		}
		saved = append(saved, idx)
	}
	sort.Ints(saved)
	return saved, nil
}

func (s *uploadService) missingIndexes(saved []int, total int) []int {
	present := make(map[int]bool, len(saved))
	for _, idx := range saved {
		present[idx] = true
	}
	var missing []int
	for i := 0; i < total; i++ {
		if !present[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

func (s *uploadService) SweepStale() error {
	entries, err := os.ReadDir(s.stagingDir)
	if err != nil {
		return fmt.Errorf("read staging dir: %w", err)
	}
	cutoff := time.Now().Add(-s.staleAfter)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.stagingDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove stale upload staging dir")
			continue
		}
		log.Info().Str("file_id", e.Name()).Msg("Removed stale upload staging dir")
	}
	return nil
}

// Start runs the periodic stale sweep; Stop blocks until the loop exits.
func (s *uploadService) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.staleAfter / 2)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.SweepStale(); err != nil {
					log.Warn().Err(err).Msg("Stale upload sweep failed")
				}
			}
		}
	}()
}

func (s *uploadService) Stop() {
	close(s.stop)
	<-s.done
}
