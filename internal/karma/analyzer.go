// Package karma scores finished confession transcripts.
package karma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/llm"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/metrics"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
)

const (
	MinDelta = -10
	MaxDelta = 10

	RubricVersion = "v1"

	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

type Result struct {
	KarmaChange   int    `json:"karmaChange"`
	Summary       string `json:"summary"`
	Reasoning     string `json:"reasoning"`
	Source        string `json:"source"`
	Rule          string `json:"rule,omitempty"`
	RubricVersion string `json:"rubricVersion"`
}

// Completer is the subset of the LLM client the analyzer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

type Analyzer struct {
	llm      Completer
	language string
}

// NewAnalyzer returns an analyzer. A nil completer means fallback only.
func NewAnalyzer(c Completer, language string) *Analyzer {
	if language == "" {
		language = "Русский"
	}
	return &Analyzer{llm: c, language: language}
}

// Analyze always returns a result in [MinDelta, MaxDelta]. Upstream failures
// and unparseable answers fall back to the rule table.
func (a *Analyzer) Analyze(ctx context.Context, msgs []models.Message) Result {
	if a.llm != nil {
		res, err := a.analyzeLLM(ctx, msgs)
		if err == nil {
			metrics.AnalyzerResults.WithLabelValues(SourceLLM).Inc()
			return res
		}
		if !errors.Is(err, llm.ErrNoProvider) {
			slog.WarnContext(ctx, "karma analysis fell back to rules", "error", err)
		}
	}

	metrics.AnalyzerResults.WithLabelValues(SourceFallback).Inc()
	return Fallback(msgs)
}

type llmVerdict struct {
	KarmaChange *float64 `json:"karmaChange"`
	Summary     string   `json:"summary"`
	Reasoning   string   `json:"reasoning"`
}

func (a *Analyzer) analyzeLLM(ctx context.Context, msgs []models.Message) (Result, error) {
	content, err := a.llm.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: buildPrompt(msgs, a.language)}},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return Result{}, err
	}
	return parseVerdict(content)
}

func parseVerdict(content string) (Result, error) {
	var v llmVerdict
	if err := json.Unmarshal([]byte(llm.StripFences(content)), &v); err != nil {
		return Result{}, fmt.Errorf("parse analysis: %w", err)
	}
	if v.KarmaChange == nil || math.IsNaN(*v.KarmaChange) {
		return Result{}, errors.New("analysis is missing karmaChange")
	}
	if strings.TrimSpace(v.Summary) == "" {
		return Result{}, errors.New("analysis is missing summary")
	}

	delta := *v.KarmaChange
	if delta > MaxDelta {
		delta = MaxDelta
	} else if delta < MinDelta {
		delta = MinDelta
	}

	return Result{
		KarmaChange:   Clamp(int(math.Round(delta))),
		Summary:       strings.TrimSpace(v.Summary),
		Reasoning:     strings.TrimSpace(v.Reasoning),
		Source:        SourceLLM,
		RubricVersion: RubricVersion,
	}, nil
}

// Clamp bounds a karma delta to [MinDelta, MaxDelta].
func Clamp(delta int) int {
	if delta > MaxDelta {
		return MaxDelta
	}
	if delta < MinDelta {
		return MinDelta
	}
	return delta
}
