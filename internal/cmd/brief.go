package cmd

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/util"
)

// loadBrief reads a YAML brief file.
//
// Example:
//
//	title: Smart Farm Co-op
//	idea: Shared sensor network for small farms
//	category: business_plan
func loadBrief(path string) (document.Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Brief{}, fmt.Errorf("failed to read brief: %w", err)
	}

	var b document.Brief
	if err := yaml.Unmarshal(data, &b); err != nil {
		return document.Brief{}, fmt.Errorf("failed to parse brief %s: %w", path, err)
	}
	return b, nil
}

// resolveBrief loads path when set and lets non-empty flag values override
// the file. The result must carry a title or an idea.
func resolveBrief(path string, flags document.Brief) (document.Brief, error) {
	var b document.Brief
	if path != "" {
		var err error
		if b, err = loadBrief(path); err != nil {
			return document.Brief{}, err
		}
	}

	if flags.Title != "" {
		b.Title = flags.Title
	}
	if flags.Idea != "" {
		b.Idea = flags.Idea
	}
	if flags.Category != "" {
		b.Category = flags.Category
	}
	if flags.CorrelationID != "" {
		b.CorrelationID = flags.CorrelationID
	}

	b.Title = strings.TrimSpace(b.Title)
	b.Idea = strings.TrimSpace(b.Idea)
	if b.Title == "" && b.Idea == "" {
		return document.Brief{}, fmt.Errorf("a brief needs a title or an idea (use --title/--idea or --brief)")
	}
	return b, nil
}

const maxSlugLen = 48

// runDir names the output folder for a run: the title slug plus the first
// block of the run id.
func runDir(title, runID string) string {
	slug := util.Slug(title, maxSlugLen)
	short, _, _ := strings.Cut(runID, "-")
	switch {
	case slug == "":
		return short
	case short == "":
		return slug
	}
	return slug + "-" + short
}
