package enricher

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/models"
)

// fakeEmbedder rejects texts longer than limit runes with core.ErrContextLength
// and fails outright on texts containing "boom".
type fakeEmbedder struct {
	limit int
	calls []string
	vec   func(text string) []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if strings.Contains(text, "boom") {
		return nil, errors.New("service unavailable")
	}
	if f.limit > 0 && len([]rune(text)) > f.limit {
		return nil, fmt.Errorf("gemini embed: %w", core.ErrContextLength)
	}
	if f.vec != nil {
		return f.vec(text), nil
	}
	return []float32{1, 2, 3}, nil
}

func TestAverage(t *testing.T) {
	got, err := Average([][]float32{{1, 2, 3}, {3, 2, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []float32{2, 2, 2}) {
		t.Errorf("expected [2 2 2], got %v", got)
	}

	if _, err := Average([][]float32{{1, 2}, {1, 2, 3}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := Average(nil); !errors.Is(err, ErrNoEmbeddableContent) {
		t.Errorf("expected ErrNoEmbeddableContent, got %v", err)
	}
}

func TestEmbed_SplitsAndHalvesOnContextLength(t *testing.T) {
	var words []string
	for i := range 10 {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := strings.Join(words, " ")

	f := &fakeEmbedder{
		limit: 5, // two words
		vec: func(text string) []float32 {
			n, _ := strconv.Atoi(strings.TrimPrefix(strings.Fields(text)[0], "w"))
			return []float32{float32(n)}
		},
	}
	e := New(f, Config{SplitTokens: 4, MaxSplitDepth: 4}, nil)

	got, err := e.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// pieces embedded: w0 w1, w2 w3, w4 w5, w6 w7, w8 w9
	if len(got) != 1 || got[0] != 4 {
		t.Errorf("expected mean of piece vectors [4], got %v", got)
	}
	if f.calls[0] != text {
		t.Errorf("expected the full text to be tried first, got %q", f.calls[0])
	}
}

func TestEmbed_DepthCap(t *testing.T) {
	f := &fakeEmbedder{limit: 1}
	e := New(f, Config{SplitTokens: 2000, MaxSplitDepth: 2}, nil)

	_, err := e.Embed(context.Background(), "alpha beta gamma delta")
	if !errors.Is(err, ErrSplitDepthExceeded) {
		t.Fatalf("expected ErrSplitDepthExceeded, got %v", err)
	}
}

func TestEmbed_OtherErrorsPropagate(t *testing.T) {
	e := New(&fakeEmbedder{}, DefaultConfig(), nil)
	_, err := e.Embed(context.Background(), "boom goes the service")
	if err == nil || errors.Is(err, core.ErrContextLength) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, err := e.Embed(context.Background(), "   "); !errors.Is(err, ErrNoEmbeddableContent) {
		t.Errorf("expected ErrNoEmbeddableContent for blank text, got %v", err)
	}
}

func TestEnrich_TypesAndScores(t *testing.T) {
	top := &models.AnchorLine{
		Line:       models.Line{Content: "Scope Of Work", PageNumber: 1, Polygon: models.Rect(10, 20, 300, 32)},
		PageHeight: 800,
	}
	chunks := []models.Chunk{
		{Position: 0, Content: "Acme Lease Agreement", PageNumber: 1},
		{Position: 1, Content: "Deposit: two months rent held in escrow.", PageNumber: 1},
		{Position: 2, Content: "<table>\n<tr><th>a</th></tr>\n</table>", PageNumber: 1, IsTable: true},
		{Position: 3, Content: "1. Pay rent monthly.\n2. Keep the unit clean.", PageNumber: 1},
		{Position: 4, Content: "Scope Of Work\nThe contractor paints walls and walls again.", PageNumber: 1, Anchor: top},
		{Position: 5, Content: "   ", PageNumber: 1},
	}
	headers := map[int]string{1: "Acme  Lease Agreement"}

	e := New(&fakeEmbedder{}, DefaultConfig(), nil)
	out, err := e.Enrich(context.Background(), chunks, headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected the blank chunk to be dropped, got %d chunks", len(out))
	}

	wantTypes := []models.SemanticType{
		models.TypeHeader, models.TypeDefinition, models.TypeTable, models.TypeNumberedList, models.TypeBodyText,
	}
	wantType := []float64{1.5, 1.3, 1.2, 1.1, 1.0}
	for i, c := range out {
		if c.SemanticType != wantTypes[i] {
			t.Errorf("chunk %d: expected type %s, got %s", i, wantTypes[i], c.SemanticType)
		}
		if c.Scores.Type != wantType[i] {
			t.Errorf("chunk %d: expected type score %v, got %v", i, wantType[i], c.Scores.Type)
		}
		if len(c.Embedding) != 3 {
			t.Errorf("chunk %d: expected an embedding", i)
		}
	}

	last := out[4]
	if last.HeadingLevel != 1 || last.Scores.Heading != 1.5 {
		t.Errorf("expected level 1 heading score, got level %d score %v", last.HeadingLevel, last.Scores.Heading)
	}
	if last.Keywords[0] != "walls" {
		t.Errorf("expected most frequent keyword first, got %v", last.Keywords)
	}
	if want := float64(len(last.Keywords)) / 5.0; last.Scores.Keyword != want {
		t.Errorf("expected keyword score %v, got %v", want, last.Scores.Keyword)
	}
	if out[1].HeadingLevel != 0 || out[1].Scores.Heading != 1.0 {
		t.Errorf("expected level 0 without an anchor line, got %d", out[1].HeadingLevel)
	}
}

func TestEnrich_PerChunkFailureFallsBack(t *testing.T) {
	chunks := []models.Chunk{
		{Position: 0, Content: "Deposit: boom boom boom"},
		{Position: 1, Content: "regular clause about payment terms"},
	}
	e := New(&fakeEmbedder{}, DefaultConfig(), nil)
	out, err := e.Enrich(context.Background(), chunks, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failed := out[0]
	if failed.Embedding != nil {
		t.Error("expected no embedding after failure")
	}
	if failed.Scores != models.DefaultScores() {
		t.Errorf("expected default scores, got %+v", failed.Scores)
	}
	if failed.SemanticType != models.TypeDefinition || len(failed.Keywords) == 0 {
		t.Errorf("expected type and keywords to survive, got %+v", failed)
	}
	if len(out[1].Embedding) == 0 {
		t.Error("expected the second chunk to be embedded")
	}
}

func TestEnrich_NothingEmbedded(t *testing.T) {
	chunks := []models.Chunk{{Content: "boom"}, {Content: "boom again"}}
	e := New(&fakeEmbedder{}, DefaultConfig(), nil)
	if _, err := e.Enrich(context.Background(), chunks, nil); !errors.Is(err, ErrNoEmbeddableContent) {
		t.Fatalf("expected ErrNoEmbeddableContent, got %v", err)
	}
}

func TestEnrich_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(&fakeEmbedder{}, DefaultConfig(), nil)
	if _, err := e.Enrich(ctx, []models.Chunk{{Content: "text"}}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
