package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/siherrmann/biolink/model"
)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// NERFunc extracts raw labeled spans from text
type NERFunc func(text string) ([]model.Span, error)

// ClassifyFunc ranks the candidate labels for text, best label first
type ClassifyFunc func(text string, labels []string) ([]model.LabelScore, error)

// ErrTimeout is returned when a model call exceeds the pipeline timeout.
var ErrTimeout = errors.New("model call timed out")

// ErrNotConfigured is returned when a model function is not set.
var ErrNotConfigured = errors.New("model function not configured")

const DefaultTimeout = 30 * time.Second

// Pipeline bundles the model functions and runs them with a timeout.
type Pipeline struct {
	Embedder        EmbedFunc
	EntityExtractor NERFunc      // Optional
	Classifier      ClassifyFunc // Optional
	Timeout         time.Duration
}

// NewPipeline creates a new model pipeline
func NewPipeline(embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Embedder: embedder,
		Timeout:  DefaultTimeout,
	}
}

// SetEntityExtractor sets the NER function
func (p *Pipeline) SetEntityExtractor(extractor NERFunc) {
	p.EntityExtractor = extractor
}

// SetClassifier sets the zero-shot classification function
func (p *Pipeline) SetClassifier(classifier ClassifyFunc) {
	p.Classifier = classifier
}

// SetTimeout sets the timeout of every single model call, zero disables it
func (p *Pipeline) SetTimeout(timeout time.Duration) {
	p.Timeout = timeout
}

// Embed runs the embedder.
func (p *Pipeline) Embed(ctx context.Context, text string) ([]float32, error) {
	if p == nil || p.Embedder == nil {
		return nil, ErrNotConfigured
	}
	return callWithTimeout(ctx, p.Timeout, func() ([]float32, error) {
		return p.Embedder(text)
	})
}

// Extract runs the NER function.
func (p *Pipeline) Extract(ctx context.Context, text string) ([]model.Span, error) {
	if p == nil || p.EntityExtractor == nil {
		return nil, ErrNotConfigured
	}
	return callWithTimeout(ctx, p.Timeout, func() ([]model.Span, error) {
		return p.EntityExtractor(text)
	})
}

// Classify runs the classifier.
func (p *Pipeline) Classify(ctx context.Context, text string, labels []string) ([]model.LabelScore, error) {
	if p == nil || p.Classifier == nil {
		return nil, ErrNotConfigured
	}
	return callWithTimeout(ctx, p.Timeout, func() ([]model.LabelScore, error) {
		return p.Classifier(text, labels)
	})
}

// callWithTimeout runs fn in its own goroutine. Model calls are not
// cancellable, on timeout the result of fn is discarded.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("model call panicked: %v", r)}
			}
		}()
		v, err := fn()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
