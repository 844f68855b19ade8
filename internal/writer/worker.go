package writer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/usage"
)

const systemPrompt = `You are a professional writer producing one section of a long-form
document. Write in Markdown. Do not repeat the section heading. Do not write
content that belongs to the neighboring sections.`

// Neighbors are the titles on either side of a task in the full task list.
type Neighbors struct {
	Prev string
	Next string
}

// Assignment is everything a worker needs to write one section.
type Assignment struct {
	Task      document.SectionTask
	Neighbors Neighbors
	// Feedback is reviewer guidance appended to the requirements on rewrite.
	Feedback string
	Revision int
}

// Worker is one writer slot. Workers are stateless apart from their id; a
// pool of N workers bounds concurrency to N.
type Worker struct {
	ID          int
	text        provider.TextGenerator
	brief       document.Brief
	temperature float64
	recorder    usage.Recorder
	now         func() time.Time
}

// Write produces the section for a. The usage of the call is recorded before
// returning.
func (w *Worker) Write(ctx context.Context, a Assignment) (document.SectionResult, error) {
	start := w.now()
	task := a.Task

	resp, err := w.text.GenerateText(ctx, provider.Request{
		Agent:        usage.AgentWriter,
		Prompt:       buildPrompt(w.brief, a),
		SystemPrompt: systemPrompt,
		Tier:         task.Tier,
		MaxTokens:    task.Budget.MaxOutputTokens,
		Temperature:  w.temperature,
	})
	if err != nil {
		return document.SectionResult{}, errors.NewWriterError(fmt.Sprintf("worker %d failed", w.ID), err).
			WithSection(task.ID, task.Title)
	}

	content := strings.TrimSpace(resp.Text)

	entry := w.recorder.Record(usage.AgentWriter, usage.Entry{
		SectionTitle: task.Title,
		Tier:         task.Tier,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	end := w.now()
	return document.SectionResult{
		SectionID: task.ID,
		Title:     task.Title,
		Content:   content,
		WordCount: len(strings.Fields(content)),
		Tier:      task.Tier,
		Model:     resp.Model,
		Usage: usage.Totals{
			Calls:        1,
			InputTokens:  entry.InputTokens,
			OutputTokens: entry.OutputTokens,
			Cost:         entry.Cost,
		},
		Duration:  end.Sub(start),
		Timestamp: end,
		Revision:  a.Revision,
	}, nil
}

func buildPrompt(brief document.Brief, a Assignment) string {
	task := a.Task
	var b strings.Builder

	fmt.Fprintf(&b, "Document: %s\n", brief.Title)
	if brief.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", brief.Category)
	}
	fmt.Fprintf(&b, "Idea: %s\n", strings.TrimSpace(brief.Idea))
	if brief.Context != "" {
		fmt.Fprintf(&b, "\nResearch notes:\n%s\n", strings.TrimSpace(brief.Context))
	}

	fmt.Fprintf(&b, "\nWrite section %s: %s\n", task.ID, task.Title)
	fmt.Fprintf(&b, "Target length: about %d words (%d characters).\n", task.EstimatedWords, task.Budget.TargetChars)
	if task.Requirements != "" {
		fmt.Fprintf(&b, "\nRequirements:\n%s\n", task.Requirements)
	}
	if a.Feedback != "" {
		fmt.Fprintf(&b, "\nReviewer feedback to address:\n%s\n", a.Feedback)
	}

	if a.Neighbors.Prev != "" || a.Neighbors.Next != "" {
		b.WriteString("\nContinuity:\n")
		if a.Neighbors.Prev != "" {
			fmt.Fprintf(&b, "- Previous section: %s\n", a.Neighbors.Prev)
		}
		if a.Neighbors.Next != "" {
			fmt.Fprintf(&b, "- Next section: %s\n", a.Neighbors.Next)
		}
	}
	return b.String()
}
