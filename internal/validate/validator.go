package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"golang.org/x/sync/errgroup"

	"github.com/hflor/livedex/internal/store"
	"github.com/hflor/livedex/internal/util"
)

// Validator cross-references stored sample and plugin references against
// the filesystem and Live's plugin registry
type Validator struct {
	store       *store.Store
	registry    *Registry
	concurrency int
}

// Config holds validator configuration
type Config struct {
	Store       *store.Store
	Registry    *Registry
	Concurrency int
}

// New creates a new Validator
func New(cfg *Config) *Validator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Validator{
		store:       cfg.Store,
		registry:    cfg.Registry,
		concurrency: cfg.Concurrency,
	}
}

// Result aggregates one presence check. Unknown is its own bucket: items
// the check could not decide are never counted present or missing.
type Result struct {
	SamplesChecked   int
	SamplesPresent   int
	SamplesMissing   int
	SamplesUnknown   int
	PluginsChecked   int
	PluginsInstalled int
	PluginsMissing   int
	PluginsUnknown   int
}

// ValidateProject checks presence for one project's samples and plugins
// and writes the results back. Safe to re-run any number of times without
// a rescan.
func (v *Validator) ValidateProject(ctx context.Context, projectID string) error {
	samples, err := v.store.ListProjectSamples(projectID)
	if err != nil {
		return err
	}
	plugins, err := v.store.ListProjectPlugins(projectID)
	if err != nil {
		return err
	}

	if _, err := v.checkSamples(ctx, samples); err != nil {
		return err
	}
	_, err = v.checkPlugins(plugins)
	return err
}

// ValidateAll checks presence for every known sample and plugin
func (v *Validator) ValidateAll(ctx context.Context) (*Result, error) {
	samples, err := v.store.ListSamples()
	if err != nil {
		return nil, err
	}
	plugins, err := v.store.ListPlugins()
	if err != nil {
		return nil, err
	}

	result, err := v.checkSamples(ctx, samples)
	if err != nil {
		return nil, err
	}
	pluginResult, err := v.checkPlugins(plugins)
	if err != nil {
		return nil, err
	}

	result.PluginsChecked = pluginResult.PluginsChecked
	result.PluginsInstalled = pluginResult.PluginsInstalled
	result.PluginsMissing = pluginResult.PluginsMissing
	result.PluginsUnknown = pluginResult.PluginsUnknown
	return result, nil
}

// checkSamples stats every sample path with bounded parallelism and writes
// the presence flags back
func (v *Validator) checkSamples(ctx context.Context, samples []*store.Sample) (*Result, error) {
	result := &Result{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	now := time.Now()
	for _, smp := range samples {
		smp := smp
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			// Older sets carry only a file name, no absolute path; those
			// refs cannot be resolved against the filesystem and stay
			// unknown rather than being declared missing
			if !filepath.IsAbs(smp.Path) {
				if err := v.store.UpdateSamplePresence(smp.ID, nil, now); err != nil {
					return err
				}
				mu.Lock()
				result.SamplesChecked++
				result.SamplesUnknown++
				mu.Unlock()
				return nil
			}

			present := sampleExists(smp.Path)
			if err := v.store.UpdateSamplePresence(smp.ID, &present, now); err != nil {
				return err
			}

			mu.Lock()
			result.SamplesChecked++
			if present {
				result.SamplesPresent++
			} else {
				result.SamplesMissing++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// checkPlugins resolves plugin names against the registry. When the
// registry is unavailable every plugin degrades to unknown.
func (v *Validator) checkPlugins(plugins []*store.Plugin) (*Result, error) {
	result := &Result{}
	if len(plugins) == 0 {
		return result, nil
	}

	now := time.Now()
	installed, err := v.registry.InstalledPlugins()
	if err != nil {
		if !errors.Is(err, ErrRegistryUnavailable) {
			return nil, err
		}
		util.WarnLog("Plugin registry unavailable, plugin state left unknown: %v", err)
		for _, p := range plugins {
			if uerr := v.store.UpdatePluginInstalled(p.ID, nil, "", now); uerr != nil {
				return nil, uerr
			}
			result.PluginsChecked++
			result.PluginsUnknown++
		}
		return result, nil
	}

	for _, p := range plugins {
		entry, ok := installed[strings.ToLower(p.Name)]
		isInstalled := ok
		if err := v.store.UpdatePluginInstalled(p.ID, &isInstalled, entry.Vendor, now); err != nil {
			return nil, err
		}
		result.PluginsChecked++
		if ok {
			result.PluginsInstalled++
		} else {
			result.PluginsMissing++
		}
	}
	return result, nil
}

func sampleExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// InspectSample reads audio metadata from a present sample file, for
// verbose presence reports. Returns a short human-readable description.
func InspectSample(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", fmt.Errorf("no readable tags: %w", err)
	}

	desc := string(m.FileType())
	if title := m.Title(); title != "" {
		desc += " " + title
	}
	if artist := m.Artist(); artist != "" {
		desc += " by " + artist
	}
	return desc, nil
}
