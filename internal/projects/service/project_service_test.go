package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocean-authoring/ocean-backend/internal/document"
	"github.com/ocean-authoring/ocean-backend/internal/llm"
	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
	"github.com/ocean-authoring/ocean-backend/internal/projects/repository"
)

// fakeGenerator returns queued replies in order and records prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeGenerator) push(reply string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply)
	f.errs = append(f.errs, err)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	reply, err := f.replies[0], f.errs[0]
	f.replies, f.errs = f.replies[1:], f.errs[1:]
	return reply, err
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance() { c.t = c.t.Add(time.Minute) }

func setupService(t *testing.T) (*ProjectService, *fakeGenerator, *testClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gen := &fakeGenerator{}
	clock := &testClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewProjectService(repository.NewRedisRepository(client), gen).WithClock(clock.now)
	return svc, gen, clock
}

func createProject(t *testing.T, svc *ProjectService, owner, topic, typ string) *domain.Project {
	t.Helper()
	p, err := svc.Create(context.Background(), domain.CreateProjectRequest{Owner: owner, Topic: topic, Type: typ})
	require.NoError(t, err)
	return p
}

const sixTitles = `["Intro","Market","Technology","Costs","Policy","Outlook"]`

func TestProjectService_CreateValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateProjectRequest{Owner: "u1", Topic: "", Type: "deck"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, domain.CreateProjectRequest{Owner: "u1", Topic: "Solar", Type: "spreadsheet"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestProjectService_ListNewestFirstAndOwnerScoped(t *testing.T) {
	svc, _, clock := setupService(t)
	ctx := context.Background()

	first := createProject(t, svc, "u1", "First", "report")
	clock.advance()
	second := createProject(t, svc, "u1", "Second", "deck")
	createProject(t, svc, "u2", "Other", "deck")

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)

	_, err = svc.Get(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u2", first.ID), domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "u1", first.ID))
	_, err = svc.Get(ctx, "u1", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_BuildOutline(t *testing.T) {
	svc, gen, clock := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "deck")

	gen.push("```json\n"+sixTitles+"\n```", nil)
	clock.advance()
	sections, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, sections, 6)
	assert.Equal(t, "Intro", sections[0].Title)
	assert.Equal(t, "Outlook", sections[5].Title)
	for _, s := range sections {
		assert.Empty(t, s.Content)
		assert.False(t, s.Generated)
	}
	assert.Contains(t, gen.lastPrompt(), `"Solar Energy"`)
	assert.Contains(t, gen.lastPrompt(), "slide titles")

	got, err := svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.t, got.LastModifiedAt)
	assert.True(t, got.LastModifiedAt.After(got.CreatedAt))
}

func TestProjectService_BuildOutlineReplacesSections(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "report")

	gen.push(sixTitles, nil)
	_, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)

	gen.push("Solar is **bright**.", nil)
	_, err = svc.GenerateSection(ctx, "u1", p.ID, 0)
	require.NoError(t, err)

	gen.push(`["A","B","C","D","E"]`, nil)
	sections, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, sections, 5)
	for _, s := range sections {
		assert.Empty(t, s.Content)
		assert.False(t, s.Generated)
	}
	assert.Contains(t, gen.lastPrompt(), "section headers")
}

func TestProjectService_BuildOutlineFailuresLeaveSections(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "deck")

	gen.push(sixTitles, nil)
	_, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)

	gen.push("", errors.New("quota exceeded"))
	_, err = svc.BuildOutline(ctx, "u1", p.ID)
	var ge *domain.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Contains(t, err.Error(), "quota exceeded")

	gen.push("Here are some titles: Intro, Body", nil)
	_, err = svc.BuildOutline(ctx, "u1", p.ID)
	require.ErrorAs(t, err, &ge)

	got, err := svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Sections, 6)
}

func TestParseOutline(t *testing.T) {
	titles, err := ParseOutline("  ```json\n[\" Intro \", \"\", \"Body\"]\n```  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Intro", "Body"}, titles)

	titles, err = ParseOutline(`["One","Two"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two"}, titles)

	for _, bad := range []string{`{"titles":["a"]}`, `[1,2,3]`, `[]`, `["  "]`, `not json`, ""} {
		_, err := ParseOutline(bad)
		var ge *domain.GenerationError
		assert.ErrorAs(t, err, &ge, "input %q", bad)
	}
}

func TestOutlineSizeOK(t *testing.T) {
	assert.False(t, OutlineSizeOK(4))
	assert.True(t, OutlineSizeOK(5))
	assert.True(t, OutlineSizeOK(8))
	assert.False(t, OutlineSizeOK(9))
}

func TestProjectService_BuildOutlineWarnsOnOddSize(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Tides", "report")

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	gen.push(`["Only","Two"]`, nil)
	sections, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Len(t, sections, 2)
	assert.Contains(t, buf.String(), "outline has 2 titles, asked for 5 to 8")

	buf.Reset()
	gen.push(sixTitles, nil)
	_, err = svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "asked for")
}

func TestProjectService_GenerateAndRefine(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "deck")

	gen.push(sixTitles, nil)
	_, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)

	_, err = svc.RefineSection(ctx, "u1", p.ID, 0, "shorter")
	assert.ErrorIs(t, err, domain.ErrValidation, "nothing to refine yet")

	gen.push("  * **Solar** power is renewable\n* It reduces emissions\n", nil)
	sec, err := svc.GenerateSection(ctx, "u1", p.ID, 0)
	require.NoError(t, err)
	assert.True(t, sec.Generated)
	assert.Equal(t, "* **Solar** power is renewable\n* It reduces emissions", sec.Content)
	assert.Contains(t, gen.lastPrompt(), `slide titled "Intro"`)
	assert.Contains(t, gen.lastPrompt(), "3 to 5 bullet points")

	_, err = svc.RefineSection(ctx, "u1", p.ID, 0, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	gen.push("* Solar is **clean**", nil)
	sec, err = svc.RefineSection(ctx, "u1", p.ID, 0, "make it punchier")
	require.NoError(t, err)
	assert.True(t, sec.Generated)
	assert.True(t, sec.Refined)
	assert.Equal(t, "* Solar is **clean**", sec.Content)
	assert.Contains(t, gen.lastPrompt(), "Original: \"* **Solar** power is renewable\n* It reduces emissions\"")
	assert.Contains(t, gen.lastPrompt(), "Instruction: make it punchier")

	got, err := svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "* Solar is **clean**", got.Sections[0].Content)
	assert.Empty(t, got.Sections[1].Content, "siblings untouched")
}

func TestProjectService_OutlineRebuiltDuringCall(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repository.NewRedisRepository(client)
	ctx := context.Background()

	var rebuild func()
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "outline") {
			return `["Intro","Costs"]`, nil
		}
		if rebuild != nil {
			rebuild()
		}
		return "* content written for Intro", nil
	})
	svc := NewProjectService(repo, gen)

	p, err := svc.Create(ctx, domain.CreateProjectRequest{Owner: "u1", Topic: "Nature", Type: "deck"})
	require.NoError(t, err)
	_, err = svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)

	rebuild = func() {
		_, err := repo.ReplaceSections(ctx, "u1", p.ID, []domain.Section{domain.NewSectionStub("Wildlife")}, time.Now())
		require.NoError(t, err)
	}
	_, err = svc.GenerateSection(ctx, "u1", p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 1)
	assert.Equal(t, "Wildlife", got.Sections[0].Title)
	assert.Empty(t, got.Sections[0].Content)
	assert.False(t, got.Sections[0].Generated)

	// Refine against a rebuilt outline that reuses the title.
	rebuild = nil
	_, err = svc.GenerateSection(ctx, "u1", p.ID, 0)
	require.NoError(t, err)
	rebuild = func() {
		_, err := repo.ReplaceSections(ctx, "u1", p.ID, []domain.Section{domain.NewSectionStub("Wildlife")}, time.Now())
		require.NoError(t, err)
	}
	_, err = svc.RefineSection(ctx, "u1", p.ID, 0, "shorter")
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err = svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Sections[0].Content)
	assert.False(t, got.Sections[0].Refined)
}

func TestProjectService_GenerateFailureLeavesSection(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "report")

	gen.push(sixTitles, nil)
	_, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)

	gen.push("first", nil)
	_, err = svc.GenerateSection(ctx, "u1", p.ID, 2)
	require.NoError(t, err)
	before, err := svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)

	gen.push("", errors.New("upstream 503: overloaded"))
	_, err = svc.GenerateSection(ctx, "u1", p.ID, 2)
	var ge *domain.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Contains(t, err.Error(), "upstream 503: overloaded")

	gen.push("", errors.New("timeout"))
	_, err = svc.RefineSection(ctx, "u1", p.ID, 2, "expand")
	require.ErrorAs(t, err, &ge)

	after, err := svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProjectService_SectionIndexAndOwner(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "deck")

	gen.push(sixTitles, nil)
	_, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)

	_, err = svc.GenerateSection(ctx, "u1", p.ID, 6)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GenerateSection(ctx, "u1", p.ID, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GenerateSection(ctx, "intruder", p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.BuildOutline(ctx, "intruder", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Export(ctx, "intruder", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_FeedbackAndComments(t *testing.T) {
	svc, gen, clock := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "deck")

	gen.push(sixTitles, nil)
	_, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)

	clock.advance()
	sec, err := svc.SetFeedback(ctx, "u1", p.ID, 1, " Like ")
	require.NoError(t, err)
	require.NotNil(t, sec.Feedback)
	assert.Equal(t, domain.FeedbackLike, *sec.Feedback)

	_, err = svc.SetFeedback(ctx, "u1", p.ID, 1, "love")
	assert.ErrorIs(t, err, domain.ErrValidation)

	sec, err = svc.AddComment(ctx, "u1", p.ID, 1, "add a chart")
	require.NoError(t, err)
	assert.Equal(t, []string{"add a chart"}, sec.Comments)
	assert.False(t, sec.Generated)

	got, err := svc.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.t, got.LastModifiedAt)
	assert.Equal(t, []string{"add a chart"}, got.Sections[1].Comments)
}

func TestProjectService_ExportDeck(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()
	p := createProject(t, svc, "u1", "Solar Energy", "deck")

	gen.push(`["Intro"]`, nil)
	_, err := svc.BuildOutline(ctx, "u1", p.ID)
	require.NoError(t, err)
	gen.push("* **Solar** power is renewable\nIt reduces emissions", nil)
	_, err = svc.GenerateSection(ctx, "u1", p.ID, 0)
	require.NoError(t, err)

	f, err := svc.Export(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Solar_Energy.pptx", f.Filename)
	assert.Equal(t, document.MIMEDeck, f.MIMEType)

	slide := readZipEntry(t, f.Data, "ppt/slides/slide2.xml")
	assert.Contains(t, slide, "Intro")
	assert.Contains(t, slide, `<a:rPr lang="en-US" b="1" dirty="0"/><a:t>Solar</a:t>`)
	assert.Contains(t, slide, "<a:t>It reduces emissions</a:t>")
}

func TestProjectService_ExportDeterministic(t *testing.T) {
	svc, gen, _ := setupService(t)
	ctx := context.Background()

	var files []*document.File
	for i := 0; i < 2; i++ {
		p := createProject(t, svc, "u1", "Wind Power", "report")
		gen.push(`["Basics","Future"]`, nil)
		_, err := svc.BuildOutline(ctx, "u1", p.ID)
		require.NoError(t, err)
		gen.push("Turbines are **tall**.", nil)
		_, err = svc.GenerateSection(ctx, "u1", p.ID, 0)
		require.NoError(t, err)

		f, err := svc.Export(ctx, "u1", p.ID)
		require.NoError(t, err)
		files = append(files, f)
	}

	assert.Equal(t, "Wind_Power.docx", files[0].Filename)
	assert.Equal(t,
		readZipEntry(t, files[0].Data, "word/document.xml"),
		readZipEntry(t, files[1].Data, "word/document.xml"))
}

func TestProjectService_ExportUnsupportedType(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repository.NewRedisRepository(client)
	svc := NewProjectService(repo, &fakeGenerator{})

	p := &domain.Project{ID: "legacy", Owner: "u1", Topic: "Old", Type: "spreadsheet", Sections: []domain.Section{}}
	require.NoError(t, repo.Create(context.Background(), p))

	_, err := svc.Export(context.Background(), "u1", "legacy")
	assert.ErrorIs(t, err, document.ErrUnsupportedType)
}

func readZipEntry(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("zip entry %s not found; have %s", name, strings.Join(zipNames(zr), ", "))
	return ""
}

func zipNames(zr *zip.Reader) []string {
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}
