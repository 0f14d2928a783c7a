package reranker

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/core/citation"
	"github.com/markdave123-py/Docsift/internal/models"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type fakeStore struct {
	results []models.SearchResult
	profile core.RankingProfile
	got     core.HybridQuery
	err     error
}

func (f *fakeStore) HybridQuery(_ context.Context, q core.HybridQuery) ([]models.SearchResult, error) {
	f.got = q
	return f.results, f.err
}

func (f *fakeStore) RankingProfile(context.Context, []string) (core.RankingProfile, error) {
	return f.profile, nil
}

type fakeURLs struct{ targets []citation.Target }

func (f *fakeURLs) BuildURL(_ context.Context, t citation.Target) (string, error) {
	f.targets = append(f.targets, t)
	return "https://viewer.test/" + t.DocumentID, nil
}

type fakeLLM struct {
	system, user string
	calls        int
}

func (f *fakeLLM) Generate(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return "The scope covers residential units.", nil
}

func candidate(id string, base float64) models.SearchResult {
	return models.SearchResult{
		Chunk:     models.Chunk{ID: id, DocumentID: "doc-" + id, Content: "content " + id, PageNumber: 1, Scores: models.DefaultScores()},
		BaseScore: base,
	}
}

func TestSelect_ThresholdAgainstTopBase(t *testing.T) {
	r := New(nil, nil, nil, DefaultConfig(), nil)
	cands := []models.SearchResult{candidate("a", 5), candidate("b", 10), candidate("c", 1), candidate("d", 8)}

	got := r.Select(cands, nil, 4, 0.7)
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "d" {
		t.Errorf("expected b then d, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestSelect_ThresholdUsesBaseNotComposite(t *testing.T) {
	r := New(nil, nil, nil, DefaultConfig(), nil)
	boosted := candidate("a", 10)
	boosted.Scores.Type = 1.5
	cands := []models.SearchResult{boosted, candidate("b", 8)}

	got := r.Select(cands, nil, 2, 0.7)
	if len(got) != 2 {
		t.Fatalf("expected both to survive a base threshold of 7, got %d", len(got))
	}
	if got[0].Score != 15 {
		t.Errorf("expected composite 15, got %v", got[0].Score)
	}
}

func TestSelect_TopKBeforeThreshold(t *testing.T) {
	r := New(nil, nil, nil, DefaultConfig(), nil)
	cands := []models.SearchResult{candidate("a", 10), candidate("b", 9), candidate("c", 9.5)}
	got := r.Select(cands, nil, 2, 0.5)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("expected a, c; got %+v", got)
	}
}

func TestCompositeScore_Monotonic(t *testing.T) {
	base := candidate("a", 2)
	base.Scores = models.SemanticScores{Type: 1.1, Heading: 1.3, Keyword: 0.4}
	terms := []string{"payment"}

	ref, err := CompositeScore(base, terms, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bumps := map[string]func(*models.SearchResult){
		"type":    func(r *models.SearchResult) { r.Scores.Type += 0.1 },
		"heading": func(r *models.SearchResult) { r.Scores.Heading += 0.1 },
		"keyword": func(r *models.SearchResult) { r.Scores.Keyword += 0.2 },
		"context": func(r *models.SearchResult) { r.PrecedingContext = "late payment" },
	}
	for name, bump := range bumps {
		c := base
		bump(&c)
		got, err := CompositeScore(c, terms, 0.05)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got <= ref {
			t.Errorf("%s: expected score above %v, got %v", name, ref, got)
		}
	}
}

func TestContextBoost(t *testing.T) {
	c := models.Chunk{
		PrecedingContext: "The PAYMENT schedule",
		FollowingContext: "payment and deposit terms",
	}
	got := ContextBoost(c, []string{"payment", "deposit", "what"}, 0.05)
	if math.Abs(got-0.15) > 1e-9 {
		t.Errorf("expected 0.15, got %v", got)
	}
}

func TestStructuralBoost(t *testing.T) {
	cases := []struct {
		section, subsection models.SectionKind
		want                float64
	}{
		{models.SectionNone, models.SectionNone, 1.0},
		{models.SectionMain, models.SectionNone, 1.3},
		{models.SectionMain, models.SectionSub, 1.2},
		{models.SectionHeading, models.SectionNone, 1.1},
	}
	for _, tc := range cases {
		c := models.Chunk{Section: models.Section{Kind: tc.section}, Subsection: models.Section{Kind: tc.subsection}}
		if got := StructuralBoost(c); got != tc.want {
			t.Errorf("%v/%v: expected %v, got %v", tc.section, tc.subsection, tc.want, got)
		}
	}
}

func TestSelect_ScoringErrorFallsBackToBase(t *testing.T) {
	r := New(nil, nil, nil, DefaultConfig(), nil)
	bad := candidate("bad", 9)
	bad.Scores.Type = math.NaN()
	bad.Section = models.Section{Kind: models.SectionMain, Title: "Scope"}

	got := r.Select([]models.SearchResult{candidate("ok", 10), bad}, nil, 2, 0.7)
	if len(got) != 2 {
		t.Fatalf("expected both candidates, got %d", len(got))
	}
	if got[1].ID != "bad" || got[1].Score != 9 {
		t.Errorf("expected bad candidate to keep base score 9, got %+v", got[1])
	}
}

func TestRerank_EndToEnd(t *testing.T) {
	top := candidate("a", 0.9)
	top.DocumentTitle = "Lease Agreement"
	top.DocumentName = "lease.pdf"
	top.Section = models.Section{Number: "6.8", Title: "Scope", Kind: models.SectionMain}
	top.PageNumber = 4

	plain := candidate("b", 0.8)
	plain.DocumentName = "notes.txt"
	plain.ContextualHeader = "Meeting Notes"

	store := &fakeStore{results: []models.SearchResult{top, plain, candidate("c", 0.1)}, profile: core.ProfileStructured}
	urls := &fakeURLs{}
	r := New(fakeEmbedder{}, store, urls, DefaultConfig(), nil)

	out, err := r.Rerank(context.Background(), "What is the scope?", 3, DefaultRelevance, []string{"doc-a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.got.Top != 6 || store.got.Profile != core.ProfileStructured || store.got.Text != "What is the scope?" {
		t.Errorf("unexpected hybrid query %+v", store.got)
	}
	if len(store.got.DocumentIDs) != 1 || store.got.DocumentIDs[0] != "doc-a" {
		t.Errorf("expected scope to be forwarded, got %v", store.got.DocumentIDs)
	}
	if out.NoResults || len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %+v", out)
	}
	if out.Results[0].URL != "https://viewer.test/doc-a" {
		t.Errorf("unexpected url %q", out.Results[0].URL)
	}

	if tg := urls.targets[0]; tg.SectionNumber != "6.8" || tg.Highlight != "Scope" || tg.HighlightSource != citation.SourceSection || tg.Page != 4 {
		t.Errorf("unexpected section target %+v", tg)
	}
	if tg := urls.targets[1]; tg.Highlight != "Meeting Notes" || tg.HighlightSource != citation.SourceHeader {
		t.Errorf("unexpected header target %+v", tg)
	}

	for _, want := range []string{"[1] Document: Lease Agreement", "Section: 6.8 Scope", "Page: 4", "URL: https://viewer.test/doc-a", "[2] Document: notes.txt", "Header: Meeting Notes", "Content:\ncontent b"} {
		if !strings.Contains(out.ContextBlock, want) {
			t.Errorf("expected context block to contain %q:\n%s", want, out.ContextBlock)
		}
	}
}

func TestRerank_ZeroRelevanceKeepsWeakCandidates(t *testing.T) {
	store := &fakeStore{results: []models.SearchResult{candidate("a", 0.9), candidate("b", 0.1)}, profile: core.ProfileUnstructured}
	r := New(fakeEmbedder{}, store, &fakeURLs{}, DefaultConfig(), nil)

	out, err := r.Rerank(context.Background(), "weak match", 5, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 2 {
		t.Errorf("expected an explicit zero threshold to keep both, got %d", len(out.Results))
	}

	out, err = r.Rerank(context.Background(), "weak match", 5, DefaultRelevance, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID != "a" {
		t.Errorf("expected the default threshold to drop b, got %+v", out.Results)
	}
}

func TestRerank_NoResults(t *testing.T) {
	r := New(fakeEmbedder{}, &fakeStore{profile: core.ProfileUnstructured}, &fakeURLs{}, DefaultConfig(), nil)
	out, err := r.Rerank(context.Background(), "anything at all", 5, 0.7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.NoResults || len(out.Results) != 0 {
		t.Errorf("expected explicit no-results outcome, got %+v", out)
	}
}

func TestRerank_ErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")

	r := New(fakeEmbedder{err: boom}, &fakeStore{}, nil, DefaultConfig(), nil)
	if _, err := r.Rerank(context.Background(), "query text", 5, 0.7, nil); !errors.Is(err, boom) {
		t.Errorf("expected embedding error, got %v", err)
	}

	r = New(fakeEmbedder{}, &fakeStore{err: boom}, nil, DefaultConfig(), nil)
	if _, err := r.Rerank(context.Background(), "query text", 5, 0.7, nil); !errors.Is(err, boom) {
		t.Errorf("expected search error, got %v", err)
	}

	if _, err := r.Rerank(context.Background(), "  ", 5, 0.7, nil); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestComposer(t *testing.T) {
	llm := &fakeLLM{}
	c := NewComposer(llm, nil)

	ans, err := c.Compose(context.Background(), &Outcome{NoResults: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ans.NoResults || ans.Text != NoResultsAnswer || llm.calls != 0 {
		t.Errorf("expected canned answer without a model call, got %+v (calls %d)", ans, llm.calls)
	}

	res := Result{SearchResult: candidate("a", 1), Score: 1.3, URL: "https://viewer.test/doc-a"}
	res.Section = models.Section{Number: "2", Title: "Scope", Kind: models.SectionMain}
	res.DocumentTitle = "Lease"
	ans, err = c.Compose(context.Background(), &Outcome{
		Query:        "what is covered?",
		Results:      []Result{res},
		ContextBlock: "[1] Document: Lease",
		Structured:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.system != Instruction(true) || !strings.Contains(llm.system, "section number") {
		t.Errorf("expected section-anchored instruction, got %q", llm.system)
	}
	if !strings.Contains(llm.user, "Question: what is covered?") || !strings.Contains(llm.user, "[1] Document: Lease") {
		t.Errorf("unexpected user prompt %q", llm.user)
	}
	if len(ans.Citations) != 1 || ans.Citations[0].Section != "2 Scope" || ans.Citations[0].URL == "" {
		t.Errorf("unexpected citations %+v", ans.Citations)
	}
	if strings.Contains(Instruction(false), "section number") {
		t.Error("expected page-anchored instruction for unstructured results")
	}
}
