package store

import (
	"path/filepath"
	"testing"

	"github.com/hflor/livedex/internal/als"
	"github.com/hflor/livedex/internal/query"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "livedex.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSet(tempo float64) *als.Set {
	return &als.Set{
		Tempo:          tempo,
		SigNumerator:   4,
		SigDenominator: 4,
		LengthBars:     32,
		DurationSecs:   32 * 4 * 60 / tempo,
		DurationKnown:  true,
		Key:            "A",
		Scale:          "Minor",
		Creator:        "Ableton Live 11.0.12",
		Plugins: []als.PluginRef{
			{Name: "Serum", Format: "VST"},
			{Name: "Pro-Q 3", Format: "VST3"},
		},
		Samples: []als.SampleRef{
			{Path: "/samples/kick.wav", Name: "kick.wav", UseCount: 3},
			{Path: "/samples/pad.wav", Name: "pad.wav", UseCount: 1},
		},
	}
}

func commitTestProject(t *testing.T, s *Store, path string, tempo float64) *Project {
	t.Helper()
	created, err := s.CommitScan(&ScanCommit{
		Path:      path,
		Name:      filepath.Base(path),
		Set:       testSet(tempo),
		SizeBytes: 1024,
		MtimeUnix: 1700000000,
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if !created {
		t.Fatalf("expected a new project for %s", path)
	}
	p, err := s.GetProjectByPath(path)
	if err != nil || p == nil {
		t.Fatalf("failed to read back project: %v", err)
	}
	return p
}

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{
		"projects", "samples", "plugins", "project_samples", "project_plugins",
		"tags", "project_tags", "collections", "collection_projects", "tasks",
		"project_fts", "schema_version",
	}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestCommitScanCreatesFullRowSet(t *testing.T) {
	s := openTestStore(t)
	p := commitTestProject(t, s, "/music/track-a.als", 128)

	if p.ID == "" {
		t.Error("expected a generated project id")
	}
	if p.Tempo != 128 || p.Key != "A" || p.Scale != "Minor" {
		t.Errorf("unexpected project fields: %+v", p)
	}
	if !p.DurationSecs.Valid || p.DurationSecs.Float64 != 60 {
		t.Errorf("expected 60s duration, got %+v", p.DurationSecs)
	}

	samples, err := s.ListProjectSamples(p.ID)
	if err != nil {
		t.Fatalf("failed to list samples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	for _, smp := range samples {
		if smp.Path == "/samples/kick.wav" && smp.UseCount != 3 {
			t.Errorf("expected kick.wav use count 3, got %d", smp.UseCount)
		}
		if smp.Present.Valid {
			t.Error("fresh samples must have unknown presence")
		}
	}

	plugins, err := s.ListProjectPlugins(p.ID)
	if err != nil {
		t.Fatalf("failed to list plugins: %v", err)
	}
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
}

func TestCommitScanUpdatesInPlace(t *testing.T) {
	s := openTestStore(t)
	p := commitTestProject(t, s, "/music/track-a.als", 128)

	set := testSet(140)
	set.Samples = []als.SampleRef{{Path: "/samples/new.wav", Name: "new.wav", UseCount: 1}}
	created, err := s.CommitScan(&ScanCommit{
		Path: "/music/track-a.als", Name: "track-a.als", Set: set,
		SizeBytes: 2048, MtimeUnix: 1700000500,
	})
	if err != nil {
		t.Fatalf("re-commit failed: %v", err)
	}
	if created {
		t.Error("expected an in-place update, not a new row")
	}

	updated, err := s.GetProjectByPath("/music/track-a.als")
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if updated.ID != p.ID {
		t.Error("project identity must be stable across re-parses")
	}
	if updated.Tempo != 140 || updated.SizeBytes != 2048 {
		t.Errorf("expected refreshed fields, got %+v", updated)
	}

	samples, err := s.ListProjectSamples(p.ID)
	if err != nil {
		t.Fatalf("failed to list samples: %v", err)
	}
	if len(samples) != 1 || samples[0].Path != "/samples/new.wav" {
		t.Errorf("expected replaced sample links, got %+v", samples)
	}

	// The old shared sample rows survive even when no project links them
	all, err := s.ListSamples()
	if err != nil {
		t.Fatalf("failed to list all samples: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 sample rows (shared rows are never deleted), got %d", len(all))
	}
}

func TestSharedSampleRowsAreDeduplicated(t *testing.T) {
	s := openTestStore(t)
	commitTestProject(t, s, "/music/a.als", 120)
	commitTestProject(t, s, "/music/b.als", 90)

	all, err := s.ListSamples()
	if err != nil {
		t.Fatalf("failed to list samples: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected sample rows shared across projects, got %d", len(all))
	}
}

func TestSoftDeleteAndRestorePreservesAssociations(t *testing.T) {
	s := openTestStore(t)
	p := commitTestProject(t, s, "/music/track-a.als", 128)

	tag, err := s.CreateTag("wip", "#ff0000")
	if err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	if err := s.AssignTag(p.ID, tag.ID); err != nil {
		t.Fatalf("failed to assign tag: %v", err)
	}
	if _, err := s.CreateTask(p.ID, "fix the drop", 2); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	coll, err := s.CreateCollection("EP", "first EP")
	if err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}
	if err := s.AddToCollection(coll.ID, p.ID); err != nil {
		t.Fatalf("failed to add to collection: %v", err)
	}

	if err := s.SoftDeleteProject(p.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got, _ := s.GetProjectByPath(p.Path); got != nil {
		t.Error("deleted project must not resolve as active by path")
	}

	if err := s.RestoreProject(p.ID); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	tags, _ := s.ListProjectTags(p.ID)
	tasks, _ := s.ListProjectTasks(p.ID)
	entries, _ := s.ListCollectionProjects(coll.ID)
	if len(tags) != 1 || len(tasks) != 1 || len(entries) != 1 {
		t.Errorf("expected associations to survive delete/restore: %d tags, %d tasks, %d collection entries",
			len(tags), len(tasks), len(entries))
	}
}

func TestTagCascadeLeavesProjects(t *testing.T) {
	s := openTestStore(t)
	p := commitTestProject(t, s, "/music/track-a.als", 128)

	tag, _ := s.CreateTag("demo", "")
	s.AssignTag(p.ID, tag.ID)

	if err := s.DeleteTag(tag.ID); err != nil {
		t.Fatalf("failed to delete tag: %v", err)
	}

	tags, _ := s.ListProjectTags(p.ID)
	if len(tags) != 0 {
		t.Error("expected junction rows to cascade")
	}
	if got, _ := s.GetProject(p.ID); got == nil || !got.Active {
		t.Error("deleting a tag must never touch project rows")
	}
}

func TestCollectionOrdering(t *testing.T) {
	s := openTestStore(t)
	a := commitTestProject(t, s, "/music/a.als", 120)
	b := commitTestProject(t, s, "/music/b.als", 90)
	c := commitTestProject(t, s, "/music/c.als", 174)

	coll, _ := s.CreateCollection("Album", "")
	for _, p := range []*Project{b, a, c} {
		if err := s.AddToCollection(coll.ID, p.ID); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
	}

	entries, err := s.ListCollectionProjects(coll.ID)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{b.ID, a.ID, c.ID}
	for i, e := range entries {
		if e.Project.ID != wantOrder[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantOrder[i], e.Project.ID)
		}
		if e.Position != i+1 {
			t.Errorf("expected position %d, got %d", i+1, e.Position)
		}
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := openTestStore(t)
	p := commitTestProject(t, s, "/music/a.als", 120)

	task, err := s.CreateTask(p.ID, "resample the lead", 1)
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if err := s.CompleteTask(task.ID); err != nil {
		t.Fatalf("failed to complete task: %v", err)
	}
	if err := s.CompleteTask(task.ID); err == nil {
		t.Error("completing twice must fail")
	}

	tasks, _ := s.ListProjectTasks(p.ID)
	if len(tasks) != 1 || !tasks[0].Completed || !tasks[0].CompletedAt.Valid {
		t.Errorf("unexpected task state: %+v", tasks[0])
	}

	if err := s.DeleteTask(task.ID); err != nil {
		t.Fatalf("failed to delete task: %v", err)
	}
}

func TestGetFingerprints(t *testing.T) {
	s := openTestStore(t)
	commitTestProject(t, s, "/music/a.als", 120)

	fps, err := s.GetFingerprints()
	if err != nil {
		t.Fatalf("failed to load fingerprints: %v", err)
	}
	fp, ok := fps["/music/a.als"]
	if !ok {
		t.Fatal("expected a fingerprint for the committed path")
	}
	if fp.SizeBytes != 1024 || fp.MtimeUnix != 1700000000 {
		t.Errorf("unexpected fingerprint: %+v", fp)
	}
}

func mustParse(t *testing.T, q string) *query.Expr {
	t.Helper()
	expr, err := query.Parse(q)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", q, err)
	}
	return expr
}

func TestSearchByBPM(t *testing.T) {
	s := openTestStore(t)
	a := commitTestProject(t, s, "/music/a.als", 120)
	commitTestProject(t, s, "/music/b.als", 90)

	results, total, err := s.Search(mustParse(t, "bpm:120"), SearchOptions{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("expected exactly one match, got %d (total %d)", len(results), total)
	}
	if results[0].Project.ID != a.ID {
		t.Errorf("expected project a, got %s", results[0].Project.Name)
	}

	// Tolerance is ±0.5
	if _, total, _ := s.Search(mustParse(t, "bpm:120.4"), SearchOptions{}); total != 1 {
		t.Errorf("expected 120.4 to match 120 within tolerance, total=%d", total)
	}
	if _, total, _ := s.Search(mustParse(t, "bpm:121"), SearchOptions{}); total != 0 {
		t.Errorf("expected 121 to miss 120, total=%d", total)
	}
}

func TestSearchFreeTextAndFieldCombination(t *testing.T) {
	s := openTestStore(t)
	commitTestProject(t, s, "/music/sunrise-sketch.als", 120)
	commitTestProject(t, s, "/music/other.als", 120)

	results, total, err := s.Search(mustParse(t, "sunrise bpm:120"), SearchOptions{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("expected one match, got %d", total)
	}
	if results[0].Project.Name != "sunrise-sketch.als" {
		t.Errorf("unexpected match: %s", results[0].Project.Name)
	}
}

func TestSearchPluginAndSampleSubstring(t *testing.T) {
	s := openTestStore(t)
	commitTestProject(t, s, "/music/a.als", 120)

	if _, total, _ := s.Search(mustParse(t, "plugin:serum"), SearchOptions{}); total != 1 {
		t.Errorf("expected plugin substring match, total=%d", total)
	}
	if _, total, _ := s.Search(mustParse(t, "samples:kick"), SearchOptions{}); total != 1 {
		t.Errorf("expected sample substring match, total=%d", total)
	}
	if _, total, _ := s.Search(mustParse(t, "plugin:massive"), SearchOptions{}); total != 0 {
		t.Errorf("expected no match for unused plugin, total=%d", total)
	}
}

func TestSearchMissingPolicy(t *testing.T) {
	s := openTestStore(t)
	a := commitTestProject(t, s, "/music/a.als", 120)

	// All presence unknown: unknown counts as missing for the query
	_, total, err := s.Search(mustParse(t, "missing:true"), SearchOptions{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected unknown presence to match missing:true, total=%d", total)
	}

	// Mark everything present and installed
	samples, _ := s.ListProjectSamples(a.ID)
	yes := true
	for _, smp := range samples {
		if err := s.UpdateSamplePresence(smp.ID, &yes, smp.CheckedAt.Time); err != nil {
			t.Fatalf("failed to update presence: %v", err)
		}
	}
	plugins, _ := s.ListProjectPlugins(a.ID)
	for _, pl := range plugins {
		if err := s.UpdatePluginInstalled(pl.ID, &yes, "", pl.CheckedAt.Time); err != nil {
			t.Fatalf("failed to update plugin: %v", err)
		}
	}

	if _, total, _ := s.Search(mustParse(t, "missing:true"), SearchOptions{}); total != 0 {
		t.Errorf("expected no missing projects after validation, total=%d", total)
	}
	if _, total, _ := s.Search(mustParse(t, "missing:false"), SearchOptions{}); total != 1 {
		t.Errorf("expected missing:false to match, total=%d", total)
	}
}

func TestSearchExcludesDeletedUnlessAsked(t *testing.T) {
	s := openTestStore(t)
	p := commitTestProject(t, s, "/music/a.als", 120)
	if err := s.SoftDeleteProject(p.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, total, _ := s.Search(mustParse(t, "bpm:120"), SearchOptions{}); total != 0 {
		t.Errorf("deleted project leaked into search, total=%d", total)
	}
	if _, total, _ := s.Search(mustParse(t, "bpm:120"), SearchOptions{IncludeDeleted: true}); total != 1 {
		t.Errorf("expected deleted project with inclusion flag, total=%d", total)
	}
}

func TestSearchIndexSyncWithNotes(t *testing.T) {
	s := openTestStore(t)
	p := commitTestProject(t, s, "/music/a.als", 120)

	if _, total, _ := s.Search(mustParse(t, "garage"), SearchOptions{}); total != 0 {
		t.Fatal("unexpected match before notes are set")
	}

	if err := s.SetProjectNotes(p.ID, "garage influenced, needs vocals"); err != nil {
		t.Fatalf("failed to set notes: %v", err)
	}

	// The index reflects the write immediately, no background reindex
	if _, total, _ := s.Search(mustParse(t, "garage"), SearchOptions{}); total != 1 {
		t.Error("expected notes to be searchable right after the write")
	}
}

func TestSearchPagination(t *testing.T) {
	s := openTestStore(t)
	commitTestProject(t, s, "/music/a.als", 120)
	commitTestProject(t, s, "/music/b.als", 120)
	commitTestProject(t, s, "/music/c.als", 120)

	results, total, err := s.Search(mustParse(t, "bpm:120"), SearchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 3 || len(results) != 2 {
		t.Errorf("expected total 3 with a 2-row page, got total=%d page=%d", total, len(results))
	}

	rest, _, err := s.Search(mustParse(t, "bpm:120"), SearchOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected 1 row on the second page, got %d", len(rest))
	}
}
