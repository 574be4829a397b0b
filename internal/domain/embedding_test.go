package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "cozy mystery in a bookshop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: cozy mystery in a bookshop" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	inner := &stubEmbedder{err: ErrRateLimited}
	emb := NewInstructionEmbedder(inner, "query: ")

	_, err := emb.Embed(context.Background(), "dragons")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	if _, err := emb.Embed(context.Background(), "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "test" {
		t.Errorf("expected 'test', got %q", inner.got)
	}
}

func TestCheckDimensions(t *testing.T) {
	if err := CheckDimensions(make([]float32, 384), 384); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, n := range []int{0, 383, 385, 1536} {
		if err := CheckDimensions(make([]float32, n), 384); !errors.Is(err, ErrVectorDimMismatch) {
			t.Errorf("len %d: expected ErrVectorDimMismatch, got %v", n, err)
		}
	}
}
