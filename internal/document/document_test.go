package document

import (
	"testing"

	"github.com/deps-lsp/deps-lsp/internal/lockfile"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

func TestDidOpenInitializesStateAtGenerationOne(t *testing.T) {
	store := NewStore()
	st := store.DidOpen("file:///no-ecosystem.txt", "hello")

	if st.Generation != 1 {
		t.Errorf("Generation = %d, want 1", st.Generation)
	}
	if st.Eco != nil {
		t.Errorf("Eco = %v, want nil for an unmatched URI", st.Eco)
	}
	if st.Text != "hello" {
		t.Errorf("Text = %q", st.Text)
	}

	snap, ok := store.Snapshot("file:///no-ecosystem.txt")
	if !ok {
		t.Fatal("Snapshot not found after DidOpen")
	}
	if snap.Generation != 1 {
		t.Errorf("Snapshot Generation = %d, want 1", snap.Generation)
	}
}

func TestSnapshotMissingDocumentReturnsFalse(t *testing.T) {
	store := NewStore()
	if _, ok := store.Snapshot("file:///never-opened.txt"); ok {
		t.Error("expected ok=false for a document never opened")
	}
}

func TestDidChangeIncrementsGenerationAndPrunesStaleCache(t *testing.T) {
	store := NewStore()
	store.DidOpen("file:///doc.txt", "one")

	if !store.CommitVersions("file:///doc.txt", 1, "stale-name", VersionState{}) {
		t.Fatal("CommitVersions at matching generation should succeed")
	}

	st, ok := store.DidChange("file:///doc.txt", "two")
	if !ok {
		t.Fatal("DidChange on an open document should succeed")
	}
	if st.Generation != 2 {
		t.Errorf("Generation = %d, want 2", st.Generation)
	}
	if _, present := st.CachedLatest["stale-name"]; present {
		t.Error("DidChange should drop cached_latest entries for names no longer parsed (none were, here, since there's no ecosystem — still must not carry over stale \"stale-name\")")
	}
}

func TestDidChangeOnClosedDocumentReturnsFalse(t *testing.T) {
	store := NewStore()
	if _, ok := store.DidChange("file:///never-opened.txt", "x"); ok {
		t.Error("expected ok=false for a document never opened")
	}
}

func TestCommitVersionsRejectsStaleGeneration(t *testing.T) {
	store := NewStore()
	store.DidOpen("file:///doc.txt", "text")
	store.DidChange("file:///doc.txt", "text2") // now generation 2

	if store.CommitVersions("file:///doc.txt", 1, "pkg", VersionState{}) {
		t.Error("CommitVersions at a superseded generation must return false")
	}

	snap, _ := store.Snapshot("file:///doc.txt")
	if _, present := snap.CachedLatest["pkg"]; present {
		t.Error("a rejected commit must not write to CachedLatest")
	}
}

func TestCommitVersionsClearsNotFound(t *testing.T) {
	store := NewStore()
	store.DidOpen("file:///doc.txt", "text")
	store.CommitNotFound("file:///doc.txt", 1, "pkg")

	snap, _ := store.Snapshot("file:///doc.txt")
	if !snap.NotFound["pkg"] {
		t.Fatal("setup: expected pkg to be marked NotFound")
	}

	store.CommitVersions("file:///doc.txt", 1, "pkg", VersionState{Latest: registry.Version{Number: "1.0.0"}})

	snap, _ = store.Snapshot("file:///doc.txt")
	if snap.NotFound["pkg"] {
		t.Error("CommitVersions should clear a prior NotFound mark for the same name")
	}
	if snap.CachedLatest["pkg"].Latest.Number != "1.0.0" {
		t.Errorf("CachedLatest[pkg].Latest.Number = %q", snap.CachedLatest["pkg"].Latest.Number)
	}
}

func TestCommitMetadataIndependentOfVersions(t *testing.T) {
	store := NewStore()
	store.DidOpen("file:///doc.txt", "text")

	meta := &registry.Metadata{Name: "pkg", Repository: "https://example.test/pkg"}
	if !store.CommitMetadata("file:///doc.txt", 1, "pkg", meta) {
		t.Fatal("CommitMetadata at matching generation should succeed")
	}

	snap, _ := store.Snapshot("file:///doc.txt")
	if snap.Metadata["pkg"] != meta {
		t.Error("Metadata should hold the committed pointer")
	}
	if _, present := snap.CachedLatest["pkg"]; present {
		t.Error("CommitMetadata must not write CachedLatest")
	}
}

func TestCommitResolvedLockLeavesCachedLatestUntouched(t *testing.T) {
	store := NewStore()
	store.DidOpen("file:///doc.txt", "text")
	store.CommitVersions("file:///doc.txt", 1, "pkg", VersionState{Latest: registry.Version{Number: "2.0.0"}})

	resolved, err := lockfile.CargoProvider{}.Parse([]byte(`
[[package]]
name = "pkg"
version = "1.9.0"
`))
	if err != nil {
		t.Fatalf("setup: Parse failed: %v", err)
	}
	if !store.CommitResolvedLock("file:///doc.txt", resolved) {
		t.Fatal("CommitResolvedLock should succeed for an open document")
	}

	snap, _ := store.Snapshot("file:///doc.txt")
	if snap.ResolvedLock["pkg"] != "1.9.0" {
		t.Errorf("ResolvedLock[pkg] = %q, want 1.9.0", snap.ResolvedLock["pkg"])
	}
	if snap.CachedLatest["pkg"].Latest.Number != "2.0.0" {
		t.Error("CommitResolvedLock must not touch CachedLatest")
	}
}

func TestDidCloseRemovesEntry(t *testing.T) {
	store := NewStore()
	store.DidOpen("file:///doc.txt", "text")
	store.DidClose("file:///doc.txt")

	if _, ok := store.Snapshot("file:///doc.txt"); ok {
		t.Error("expected the document to be gone after DidClose")
	}
	if store.CommitVersions("file:///doc.txt", 1, "pkg", VersionState{}) {
		t.Error("CommitVersions after DidClose must return false")
	}
}
