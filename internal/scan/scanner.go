package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/hflor/livedex/internal/als"
	"github.com/hflor/livedex/internal/report"
	"github.com/hflor/livedex/internal/store"
	"github.com/hflor/livedex/internal/util"
)

// ProjectExtension is the Live set file extension
const ProjectExtension = ".als"

// backupNamePattern matches Live's autosave/backup naming, e.g.
// "track [2023-11-02 154530].als"
var backupNamePattern = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2} \d{6}\]`)

// ProjectValidator checks sample/plugin presence for one committed project.
// Nil disables validation during scans.
type ProjectValidator interface {
	ValidateProject(ctx context.Context, projectID string) error
}

// Scanner discovers Live sets under configured roots, gates them through the
// change detector and runs decode -> validate -> commit per file
type Scanner struct {
	store       *store.Store
	validator   ProjectValidator
	logger      *report.EventLogger
	concurrency int
}

// Config holds scanner configuration
type Config struct {
	Store       *store.Store
	Validator   ProjectValidator
	Logger      *report.EventLogger
	Concurrency int
}

// NewScanner creates a new Scanner
func NewScanner(cfg *Config) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = report.NullLogger()
	}
	return &Scanner{
		store:       cfg.Store,
		validator:   cfg.Validator,
		logger:      logger,
		concurrency: cfg.Concurrency,
	}
}

// Failure is one path the scan could not process
type Failure struct {
	Path string
	Err  error
}

// Summary aggregates one scan run. Counts are reproducible regardless of
// worker interleaving.
type Summary struct {
	Scanned   int // eligible files considered
	Created   int
	Updated   int
	Unchanged int
	Skipped   int // files without the project envelope
	Failed    int
	Failures  []Failure
	Elapsed   time.Duration
}

// fileStatus is one worker's verdict on one path, sent to the aggregator
type fileStatus int

const (
	statusCreated fileStatus = iota
	statusUpdated
	statusUnchanged
	statusSkipped
	statusFailed
)

type fileResult struct {
	path   string
	status fileStatus
	err    error
}

// Scan walks the given roots (directories or explicit files) and indexes
// every eligible Live set that the change detector lets through. Failures
// are isolated per file; only the fingerprint preload is fatal.
func (s *Scanner) Scan(ctx context.Context, roots []string, force bool) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	fingerprints, err := s.store.GetFingerprints()
	if err != nil {
		return nil, fmt.Errorf("failed to preload fingerprints: %w", err)
	}
	util.DebugLog("Loaded %d persisted fingerprints", len(fingerprints))

	paths := make(chan string, 100)
	results := make(chan fileResult, 100)

	var processed atomic.Int64

	// Progress bar on interactive runs only
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("sets"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	// Workers decode and commit independently; they share nothing but the
	// store, which serializes at the commit
	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				select {
				case <-ctx.Done():
					return
				default:
				}

				res := s.processFile(ctx, path, fingerprints, force)
				processed.Add(1)
				if bar != nil {
					bar.Set64(processed.Load())
				}

				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Single aggregator owns the summary; workers never touch shared counters
	var aggWg sync.WaitGroup
	aggWg.Add(1)
	go func() {
		defer aggWg.Done()
		for res := range results {
			summary.Scanned++
			switch res.status {
			case statusCreated:
				summary.Created++
			case statusUpdated:
				summary.Updated++
			case statusUnchanged:
				summary.Unchanged++
			case statusSkipped:
				summary.Skipped++
			case statusFailed:
				summary.Failed++
				summary.Failures = append(summary.Failures, Failure{Path: res.path, Err: res.err})
			}
		}
	}()

	walkErr := s.enumerate(ctx, roots, paths)

	close(paths)
	wg.Wait()
	close(results)
	aggWg.Wait()

	if bar != nil {
		bar.Finish()
	}

	summary.Elapsed = time.Since(start)

	if walkErr != nil {
		return summary, walkErr
	}

	util.SuccessLog("Scan complete: %d scanned, %d new, %d updated, %d unchanged, %d failed in %s",
		summary.Scanned, summary.Created, summary.Updated, summary.Unchanged, summary.Failed,
		summary.Elapsed.Round(time.Millisecond))

	return summary, nil
}

// enumerate feeds eligible paths from every root into the paths channel.
// A missing root is logged and skipped; sibling roots are still walked.
func (s *Scanner) enumerate(ctx context.Context, roots []string, paths chan<- string) error {
	emit := func(path string) error {
		select {
		case paths <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if os.IsNotExist(err) {
			util.WarnLog("Scan root does not exist, skipping: %s", root)
			continue
		}
		if err != nil {
			util.WarnLog("Cannot access scan root %s: %v", root, err)
			continue
		}

		if !info.IsDir() {
			if IsEligible(root) {
				if err := emit(root); err != nil {
					return err
				}
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				util.WarnLog("Error accessing path %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				// Live writes autosaves into per-project Backup directories
				if d.Name() == "Backup" {
					return filepath.SkipDir
				}
				return nil
			}
			if IsEligible(path) {
				return emit(path)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return err
			}
			util.WarnLog("Walk error under %s: %v", root, err)
		}
	}
	return nil
}

// IsEligible reports whether a path looks like an indexable Live set:
// right extension, not an AppleDouble sidecar, not a backup/autosave copy
func IsEligible(path string) bool {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ProjectExtension) {
		return false
	}
	if strings.HasPrefix(name, "._") {
		return false
	}
	if backupNamePattern.MatchString(name) {
		return false
	}
	return true
}

// processFile runs the full per-file pipeline: change gate, decode,
// commit, presence validation
func (s *Scanner) processFile(ctx context.Context, path string, fingerprints map[string]store.Fingerprint, force bool) fileResult {
	size, mtime, err := util.GetFileMetadata(path)
	if err != nil {
		return fileResult{path: path, status: statusFailed, err: err}
	}

	current := store.Fingerprint{SizeBytes: size, MtimeUnix: mtime}
	var prev *store.Fingerprint
	if fp, ok := fingerprints[path]; ok {
		prev = &fp
	}

	change := DetectChange(current, prev, force)
	if change == Unchanged {
		util.DebugLog("Unchanged: %s", path)
		s.logger.LogUnchanged(path)
		return fileResult{path: path, status: statusUnchanged}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.LogError(path, err)
		return fileResult{path: path, status: statusFailed, err: fmt.Errorf("read failed: %w", err)}
	}

	set, err := als.Decode(data)
	if err != nil {
		if errors.Is(err, als.ErrNotProjectFile) {
			util.DebugLog("Not a Live set, skipping: %s", path)
			s.logger.LogSkipped(path, "not a live set")
			return fileResult{path: path, status: statusSkipped}
		}
		util.DebugLog("Decode failed for %s: %v", path, err)
		s.logger.LogError(path, err)
		return fileResult{path: path, status: statusFailed, err: err}
	}

	commit := &store.ScanCommit{
		Path:      path,
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Set:       set,
		SizeBytes: size,
		MtimeUnix: mtime,
	}

	// One retry with backoff on write contention, then the failure is
	// recorded against this file and the scan moves on
	created, err := util.RetryWithBackoff(util.CommitRetryConfig(), func() (bool, error) {
		return s.store.CommitScan(commit)
	}, fmt.Sprintf("commit(%s)", path))
	if err != nil {
		s.logger.LogError(path, err)
		return fileResult{path: path, status: statusFailed, err: fmt.Errorf("commit failed: %w", err)}
	}
	s.logger.LogIndexed(path, set.Tempo, created)

	if s.validator != nil {
		project, perr := s.store.GetProjectByPath(path)
		if perr == nil && project != nil {
			if verr := s.validator.ValidateProject(ctx, project.ID); verr != nil {
				util.WarnLog("Presence validation failed for %s: %v", path, verr)
			}
		}
	}

	if created {
		util.DebugLog("Indexed new project: %s", path)
		return fileResult{path: path, status: statusCreated}
	}
	util.DebugLog("Re-indexed project: %s (%s)", path, change)
	return fileResult{path: path, status: statusUpdated}
}
