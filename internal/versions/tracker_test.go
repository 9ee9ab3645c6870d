package versions

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func newTestTracker(t *testing.T) (*Tracker, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/Seller Package/zz.pdf", "zz v1")
	writeFile(t, fs, "/src/Seller Package/aa.pdf", "aa v1")
	writeFile(t, fs, "/src/Seller Package/notes.txt", "ignored")
	writeFile(t, fs, "/src/Buyer Package/rpa.pdf", "rpa v1")
	writeFile(t, fs, "/src/loose.pdf", "not in a package")

	tr := NewTracker(fs, "/src", "/manifests", HashSHA256)
	tr.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }
	return tr, fs
}

func TestHashFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.pdf", "hello")

	sum := sha256.Sum256([]byte("hello"))
	want := hex.EncodeToString(sum[:])[:16]

	got, err := HashFile(fs, "/a.pdf", HashSHA256)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	b3, err := HashFile(fs, "/a.pdf", HashBLAKE3)
	require.NoError(t, err)
	assert.Len(t, b3, 16)
	assert.NotEqual(t, got, b3)

	_, err = HashFile(fs, "/a.pdf", "md5")
	assert.Error(t, err)

	_, err = HashFile(fs, "/missing.pdf", HashSHA256)
	assert.Error(t, err)

	assert.True(t, ValidHash("blake3"))
	assert.False(t, ValidHash("crc32"))
}

func TestScan(t *testing.T) {
	tr, _ := newTestTracker(t)

	docs, err := tr.Scan()
	require.NoError(t, err)

	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = d.Key()
	}
	assert.Equal(t, []string{
		"Buyer Package/rpa.pdf",
		"Seller Package/aa.pdf",
		"Seller Package/zz.pdf",
	}, keys)
	assert.Equal(t, "/src/Buyer Package/rpa.pdf", docs[0].Path)
}

func TestCheckChangesAndRecord(t *testing.T) {
	tr, fs := newTestTracker(t)

	first, err := tr.CheckChanges()
	require.NoError(t, err)
	assert.Len(t, first.Added, 3)
	assert.Empty(t, first.Changed)
	assert.Equal(t, 3, first.TotalCurrent)
	assert.Equal(t, first.Added, first.NeedsAnalysis())

	entry, err := tr.Record(first, first.NeedsAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T08:00:00", entry.Timestamp)
	assert.NotEmpty(t, entry.RunID)
	assert.Equal(t, 3, entry.Added)
	assert.Nil(t, entry.RemovedFiles)

	writeFile(t, fs, "/src/Seller Package/zz.pdf", "zz v2")
	require.NoError(t, fs.Remove("/src/Buyer Package/rpa.pdf"))
	writeFile(t, fs, "/src/Seller Package/new.pdf", "new")

	second, err := tr.CheckChanges()
	require.NoError(t, err)
	assert.Equal(t, []string{"Seller Package/new.pdf"}, second.Added)
	assert.Equal(t, []string{"Seller Package/zz.pdf"}, second.Changed)
	assert.Equal(t, []string{"Buyer Package/rpa.pdf"}, second.Removed)
	assert.Equal(t, []string{"Seller Package/aa.pdf"}, second.Unchanged)
	assert.True(t, second.IsChanged("Seller Package/zz.pdf"))
	assert.False(t, second.IsChanged("Seller Package/new.pdf"))
	assert.Equal(t, []string{"Seller Package/new.pdf", "Seller Package/zz.pdf"}, second.NeedsAnalysis())

	doc, ok := second.Document("Seller Package/zz.pdf")
	require.True(t, ok)
	assert.Equal(t, "/src/Seller Package/zz.pdf", doc.Path)
	_, ok = second.Document("Buyer Package/rpa.pdf")
	assert.False(t, ok)

	_, err = tr.Record(second, []string{"Seller Package/zz.pdf"})
	require.NoError(t, err)

	db, err := tr.Load()
	require.NoError(t, err)
	assert.Len(t, db.Files, 3)
	assert.NotContains(t, db.Files, "Buyer Package/rpa.pdf")
	require.Len(t, db.History, 2)
	assert.Equal(t, []string{"Buyer Package/rpa.pdf"}, db.History[1].RemovedFiles)
	assert.Equal(t, []string{"Seller Package/zz.pdf"}, db.History[1].Reanalyzed)

	third, err := tr.CheckChanges()
	require.NoError(t, err)
	assert.Empty(t, third.NeedsAnalysis())
	assert.Len(t, third.Unchanged, 3)
}

func TestHistory(t *testing.T) {
	tr, _ := newTestTracker(t)

	empty, err := tr.History(10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	c, err := tr.CheckChanges()
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := tr.Record(c, nil)
		require.NoError(t, err)
	}

	h, err := tr.History(10)
	require.NoError(t, err)
	assert.Len(t, h, 10)

	all, err := tr.History(0)
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestLoad_Corrupt(t *testing.T) {
	tr, fs := newTestTracker(t)
	writeFile(t, fs, "/manifests/_versions.yaml", "files: [not, a, map")

	_, err := tr.Load()
	assert.Error(t, err)
	_, err = tr.CheckChanges()
	assert.Error(t, err)
}

func TestChangesString(t *testing.T) {
	c := &Changes{
		Added:        []string{"Buyer Package/new.pdf"},
		Changed:      []string{"Seller Package/aa.pdf"},
		Unchanged:    []string{"Seller Package/zz.pdf"},
		TotalCurrent: 3,
	}
	want := "Total PDFs: 3\nNew: 1\nChanged: 1\nRemoved: 0\nUnchanged: 1\n" +
		"\nNew files:\n  + Buyer Package/new.pdf\n" +
		"\nChanged files:\n  ~ Seller Package/aa.pdf\n"
	assert.Equal(t, want, c.String())
}
