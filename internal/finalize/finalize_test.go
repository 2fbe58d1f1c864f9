package finalize

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jorge-barreto/docgen/internal/evaluate"
	"github.com/jorge-barreto/docgen/internal/index"
	"github.com/jorge-barreto/docgen/internal/sections"
	"github.com/jorge-barreto/docgen/internal/sharedstate"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

func TestDirFinalizer_WritesSectionsAndDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	f := &DirFinalizer{Dir: dir}
	doc := Document{
		RunID: "r1",
		Sections: sections.Sections{
			sections.Readme:  "# Project\n\nHello.",
			sections.Diagram: "graph TD\n  A-->B",
			"TESTS.md":       "# Tests",
		},
	}

	rep, err := f.Finalize(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, dir, rep.OutputDir)
	require.Empty(t, rep.Warnings)
	require.Len(t, rep.Files, 6)

	readme, err := os.ReadFile(filepath.Join(dir, sections.Readme))
	require.NoError(t, err)
	require.Equal(t, "# Project\n\nHello.\n", string(readme))

	diagram, err := os.ReadFile(filepath.Join(dir, "diagrams", sections.Diagram))
	require.NoError(t, err)
	require.Contains(t, string(diagram), "A-->B")

	api, err := os.ReadFile(filepath.Join(dir, sections.APIReference))
	require.NoError(t, err)
	def, _ := sections.Default(sections.APIReference)
	require.Equal(t, def+"\n", string(api))

	_, err = os.Stat(filepath.Join(dir, "TESTS.md"))
	require.NoError(t, err)

	combined, err := os.ReadFile(filepath.Join(dir, DefaultCombinedFile))
	require.NoError(t, err)
	require.Equal(t, rep.Combined, filepath.Join(dir, DefaultCombinedFile))
	require.True(t, strings.HasPrefix(string(combined), "# Technical Documentation\n\n## README\n# Project"))
	require.Contains(t, string(combined), "## API REFERENCE\n")
	require.Contains(t, string(combined), "## EXAMPLES\n")
	require.NotContains(t, string(combined), "A-->B")
}

func TestDirFinalizer_SkipsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	f := &DirFinalizer{Dir: dir, CombinedFile: "all.md"}
	rep, err := f.Finalize(context.Background(), Document{Sections: sections.Sections{
		"../escape.md": "nope",
	}})
	require.NoError(t, err)
	require.Len(t, rep.Warnings, 1)
	require.Contains(t, rep.Warnings[0], "unsafe name")
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.md"))
	require.True(t, os.IsNotExist(err))
	require.Equal(t, filepath.Join(dir, "all.md"), rep.Combined)
}

func TestDirFinalizer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&DirFinalizer{Dir: t.TempDir()}).Finalize(ctx, Document{})
	require.ErrorIs(t, err, context.Canceled)
}

type fakeMirror struct {
	name string
	err  error
	got  *Report
}

func (m *fakeMirror) Name() string { return m.name }

func (m *fakeMirror) Mirror(ctx context.Context, doc Document, rep *Report) error {
	m.got = rep
	return m.err
}

type fakeFinalizer struct {
	rep *Report
	err error
}

func (f *fakeFinalizer) Finalize(ctx context.Context, doc Document) (*Report, error) {
	return f.rep, f.err
}

func TestChain_MirrorFailureIsWarning(t *testing.T) {
	ok := &fakeMirror{name: "ok"}
	bad := &fakeMirror{name: "s3 mirror", err: errors.New("access denied")}
	c := &Chain{
		Primary: &fakeFinalizer{rep: &Report{OutputDir: "docs"}},
		Mirrors: []Mirror{bad, ok},
	}
	rep, err := c.Finalize(context.Background(), Document{})
	require.NoError(t, err)
	require.Equal(t, []string{"s3 mirror: access denied"}, rep.Warnings)
	require.Same(t, rep, ok.got)
}

func TestChain_PrimaryFailureStops(t *testing.T) {
	m := &fakeMirror{name: "m"}
	c := &Chain{Primary: &fakeFinalizer{err: errors.New("disk full")}, Mirrors: []Mirror{m}}
	_, err := c.Finalize(context.Background(), Document{})
	require.EqualError(t, err, "disk full")
	require.Nil(t, m.got)
}

type fakeObjectStore struct {
	mu        sync.Mutex
	exists    bool
	existsErr error
	made      []string
	objects   map[string]string
	types     map[string]string
}

func (f *fakeObjectStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeObjectStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket+"@"+opts.Region)
	f.exists = true
	return nil
}

func (f *fakeObjectStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
		f.types = map[string]string{}
	}
	f.objects[bucket+"/"+key] = string(data)
	f.types[key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestS3Mirror_UploadsUnderRunID(t *testing.T) {
	dir := t.TempDir()
	rep, err := (&DirFinalizer{Dir: dir}).Finalize(context.Background(), Document{
		Sections: sections.Sections{sections.Readme: "# Hi"},
	})
	require.NoError(t, err)

	store := &fakeObjectStore{}
	m, err := NewS3MirrorWithClient(store, "docs-bucket", "eu-west-1")
	require.NoError(t, err)
	require.NoError(t, m.Mirror(context.Background(), Document{RunID: "run-7"}, rep))

	require.Equal(t, []string{"docs-bucket@eu-west-1"}, store.made)
	var keys []string
	for k := range store.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	require.Equal(t, []string{
		"docs-bucket/run-7/API_REFERENCE.md",
		"docs-bucket/run-7/ARCHITECTURE.md",
		"docs-bucket/run-7/EXAMPLES.md",
		"docs-bucket/run-7/README.md",
		"docs-bucket/run-7/diagrams/architecture.mermaid",
		"docs-bucket/run-7/" + DefaultCombinedFile,
	}, keys)
	require.Equal(t, "# Hi\n", store.objects["docs-bucket/run-7/README.md"])
	require.Equal(t, "text/markdown; charset=utf-8", store.types["run-7/README.md"])
	require.Equal(t, "text/plain; charset=utf-8", store.types["run-7/diagrams/architecture.mermaid"])

	// The bucket check runs once.
	require.NoError(t, m.Mirror(context.Background(), Document{RunID: "run-8"}, rep))
	require.Len(t, store.made, 1)
}

func TestS3Mirror_Errors(t *testing.T) {
	_, err := NewS3MirrorWithClient(&fakeObjectStore{}, " ", "")
	require.EqualError(t, err, "s3 bucket is required")

	m, err := NewS3MirrorWithClient(&fakeObjectStore{existsErr: errors.New("no route")}, "b", "")
	require.NoError(t, err)
	err = m.Mirror(context.Background(), Document{RunID: "r"}, &Report{})
	require.ErrorContains(t, err, "ensure bucket: no route")

	err = m.Mirror(context.Background(), Document{}, &Report{})
	require.EqualError(t, err, "run id is required")
}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "run/a/b.md", objectKey(" run ", "/a/b.md"))
}

func TestCountEndpoints(t *testing.T) {
	api := strings.Join([]string{
		"# API",
		"### **GET** /users",
		"### `POST /users`",
		"| GET | /health |",
		"| Method | Path |",
		"GET and POST in prose do not count",
		"**DELETE** /users/{id}, also `DELETE`, counts once",
	}, "\n")
	require.Equal(t, []Count{{"GET", 2}, {"POST", 1}, {"DELETE", 1}}, CountEndpoints(api))
	require.Empty(t, CountEndpoints(""))
}

func TestComputeStats(t *testing.T) {
	st := sharedstate.New()
	require.NoError(t, st.Set(index.KeySourceFiles, map[string]string{
		"main.go": "", "util.go": "", "app.py": "", "Makefile": "",
	}))
	require.NoError(t, st.Set(index.KeyClasses, map[string][]string{"main.go": {"Server", "Config"}}))
	require.NoError(t, st.Set(index.KeyFunctions, map[string][]string{"main.go": {"main"}, "app.py": {"run", "stop"}}))
	require.NoError(t, st.Set(index.KeyImports, map[string][]string{"main.go": {"fmt"}}))

	secs := sections.Sections{
		sections.Readme:       "12345",
		sections.APIReference: "**GET** /x",
		sections.Diagram:      "graph TD",
	}
	s := ComputeStats(secs, st)
	require.Equal(t, 4, s.TotalFiles)
	require.Equal(t, 1, s.TotalEndpoints)
	require.Equal(t, []Count{{".go", 2}, {".py", 1}, {"no_extension", 1}}, s.Extensions)
	require.Equal(t, []Count{{"Classes", 2}, {"Functions", 3}, {"Imports", 1}}, s.Structure)
	require.Equal(t, []Count{{"README", 5}, {"API_REFERENCE", 10}}, s.SectionSizes)
}

func TestComputeStats_EmptyStore(t *testing.T) {
	s := ComputeStats(sections.Sections{}, sharedstate.New())
	require.Zero(t, s.TotalFiles)
	require.Equal(t, []Count{{"Classes", 0}, {"Functions", 0}, {"Imports", 0}}, s.Structure)
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	doc := Document{
		RunID:      "r1",
		Folder:     "/src/app",
		Language:   "go",
		Evaluation: evaluate.Result{Mean: 7.5, Scores: map[string]float64{"task_completion": 7.5}},
	}
	rec := NewRecord(doc, &Report{Files: []string{"docs/README.md"}}, now)
	require.Equal(t, "docgen: /src/app", rec.TaskDescription)
	require.Equal(t, "2025-03-01T10:30:00.000000", rec.Datetime)
	require.Equal(t, 7.5, rec.Score)
	require.Equal(t, 0.75, rec.Metadata.Confidence)
	require.Equal(t, "docgen", rec.Metadata.Agent)
	require.Equal(t, "1 files written", rec.Metadata.Result)

	long := NewRecord(Document{Folder: strings.Repeat("x", 400)}, nil, now)
	require.Len(t, long.TaskDescription, 255)

	wide := NewRecord(Document{Folder: strings.Repeat("é", 200)}, nil, now)
	require.True(t, utf8.ValidString(wide.TaskDescription))
	require.Len(t, wide.TaskDescription, 254)
}

func TestPostgresRecorder_Upsert(t *testing.T) {
	dsn := os.Getenv("DOCGEN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCGEN_TEST_POSTGRES_DSN not set")
	}
	p, err := NewPostgresRecorder(dsn)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	desc := "docgen: test-" + time.Now().Format("150405.000000")
	rec := Record{TaskDescription: desc, Datetime: "t1", Score: 5, Metadata: RecordMetadata{RunID: "a"}}
	require.NoError(t, p.Save(ctx, rec))
	rec.Score, rec.Metadata.RunID = 8, "b"
	require.NoError(t, p.Save(ctx, rec))

	got, ok, err := p.Load(ctx, desc)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 8.0, got.Score)
	require.Equal(t, "b", got.Metadata.RunID)

	var n int
	require.NoError(t, p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docgen WHERE task_description = $1`, desc).Scan(&n))
	require.Equal(t, 1, n)
}
