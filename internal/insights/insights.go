// Package insights summarizes a mind map: its main branches, topics that
// could be linked, topics that seem missing and a short summary. A language
// model is used when one is configured; otherwise a word-frequency analysis
// runs locally.
package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/kernel/mindmap/internal/outline"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
)

// Connection is a suggested link between two topics.
type Connection struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// Insights is the result of an analysis.
type Insights struct {
	MainBranches         []string     `json:"mainBranches"`
	SuggestedConnections []Connection `json:"suggestedConnections"`
	MissingTopics        []string     `json:"missingTopics"`
	Summary              string       `json:"summary"`
	// Source is "model" or "local".
	Source string `json:"source"`
}

const (
	SourceModel = "model"
	SourceLocal = "local"
)

// Model is a language model able to analyze an indented outline.
type Model interface {
	Available(ctx context.Context) bool
	Analyze(ctx context.Context, outline string) (Insights, error)
}

// Analyzer runs analyses and remembers the last result per outline.
type Analyzer struct {
	Model  Model
	Logger *pterm.Logger

	mu       sync.Mutex
	lastHash string
	last     Insights
}

// NewAnalyzer returns an analyzer. A nil model means local analysis only.
func NewAnalyzer(m Model) *Analyzer {
	return &Analyzer{Model: m, Logger: &pterm.DefaultLogger}
}

// Analyze returns insights for doc. Unchanged outlines are answered from the
// cache. Model failures fall back to the local analysis and are only logged.
func (a *Analyzer) Analyze(ctx context.Context, doc outline.Document) Insights {
	texts := topics(doc)
	hash := digest(texts)

	a.mu.Lock()
	if a.lastHash == hash {
		cached := a.last
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	result := a.analyze(ctx, doc, texts)

	a.mu.Lock()
	a.lastHash, a.last = hash, result
	a.mu.Unlock()
	return result
}

func (a *Analyzer) analyze(ctx context.Context, doc outline.Document, texts []string) Insights {
	if a.Model != nil && a.Model.Available(ctx) {
		res, err := a.Model.Analyze(ctx, Indented(doc))
		if err == nil {
			res.Source = SourceModel
			return normalize(res)
		}
		if a.Logger != nil {
			a.Logger.Warn("model analysis failed, using local analysis", a.Logger.Args("error", err))
		}
	}
	return Local(doc, texts)
}

// Fallback is returned when nothing could be analyzed.
func Fallback() Insights {
	return Insights{
		MainBranches:         []string{"Analysis unavailable"},
		SuggestedConnections: []Connection{},
		MissingTopics:        []string{"Additional analysis needed"},
		Summary:              "Unable to perform detailed analysis. Please try again.",
		Source:               SourceLocal,
	}
}

// Indented renders doc as the text outline handed to the model, one line
// per entry.
func Indented(doc outline.Document) string {
	if len(doc) == 0 {
		return ""
	}
	return outline.Text(doc) + "\n"
}
