// Package profile assembles the machine-readable profile document from the
// site's static JSON data sources.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Source file layout under the data directory. ai-context.json sits at the
// root; the rest live under data/.
const (
	aiContextFile  = "ai-context.json"
	educationFile  = "education.json"
	workFile       = "work-experience.json"
	projectsFile   = "projects-detailed.json"
	skillsFile     = "skills-taxonomy.json"
	interestsFile  = "interests-philosophy.json"
	nestedDataPath = "data"
)

// Aggregator builds the unified document. Any unreadable or malformed
// source aborts the build; this endpoint feeds external tooling and should
// fail loudly rather than serve a partial document.
type Aggregator struct {
	dataDir string
	source  string
	now     func() time.Time
}

// New creates an aggregator over dataDir. source is the canonical site URL
// embedded in the document metadata.
func New(dataDir, source string) *Aggregator {
	return &Aggregator{
		dataDir: dataDir,
		source:  source,
		now:     time.Now,
	}
}

// Build reads every source and assembles the document.
func (a *Aggregator) Build() (map[string]interface{}, error) {
	aiContext, err := a.readJSON(filepath.Join(a.dataDir, aiContextFile))
	if err != nil {
		return nil, err
	}
	education, err := a.readJSON(filepath.Join(a.dataDir, nestedDataPath, educationFile))
	if err != nil {
		return nil, err
	}
	work, err := a.readJSON(filepath.Join(a.dataDir, nestedDataPath, workFile))
	if err != nil {
		return nil, err
	}
	projects, err := a.readJSON(filepath.Join(a.dataDir, nestedDataPath, projectsFile))
	if err != nil {
		return nil, err
	}
	skills, err := a.readJSON(filepath.Join(a.dataDir, nestedDataPath, skillsFile))
	if err != nil {
		return nil, err
	}
	interests, err := a.readJSON(filepath.Join(a.dataDir, nestedDataPath, interestsFile))
	if err != nil {
		return nil, err
	}

	doc := map[string]interface{}{
		"metadata": map[string]interface{}{
			"version":     "1.0.0",
			"lastUpdated": a.now().UTC().Format(time.RFC3339),
			"source":      a.source,
			"description": "Comprehensive machine-readable context about the site owner",
		},
		"profile": map[string]interface{}{
			"name":        aiContext["name"],
			"givenName":   aiContext["givenName"],
			"familyName":  aiContext["familyName"],
			"email":       aiContext["email"],
			"url":         aiContext["url"],
			"jobTitle":    aiContext["jobTitle"],
			"currentWork": aiContext["worksFor"],
			"education":   aiContext["alumniOf"],
			"biography":   aiContext["biography"],
		},
		"education": education,
		"workExperience": map[string]interface{}{
			"positions":         work["experiences"],
			"careerProgression": work["careerProgression"],
			"workStyle":         work["workStyle"],
		},
		"projects": map[string]interface{}{
			"detailed": projects["projects"],
			"themes":   projects["projectThemes"],
			"summary":  projectSummaries(projects["projects"]),
		},
		"skills": map[string]interface{}{
			"technical":        skills["technicalSkills"],
			"soft":             skills["softSkills"],
			"learningApproach": skills["learningApproach"],
			"strengths":        skills["strengthsAndGrowth"],
		},
		"interests": map[string]interface{}{
			"professional": interests["professionalInterests"],
			"personal":     interests["personalInterests"],
			"creative":     interests["creativeOutlets"],
			"future":       interests["futureInterests"],
		},
		"philosophy":  interests["philosophy"],
		"queryGuides": aiContext["queryGuides"],
	}
	return doc, nil
}

func (a *Aggregator) readJSON(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// projectSummaries derives the quick-reference list from the detailed
// project entries. Unexpected shapes yield an empty summary rather than an
// error; the detailed entries are still served verbatim.
func projectSummaries(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	summaries := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		p, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		summaries = append(summaries, map[string]interface{}{
			"id":        p["id"],
			"name":      p["name"],
			"category":  p["category"],
			"tagline":   p["tagline"],
			"status":    p["status"],
			"keyResult": keyResult(p["results"]),
		})
	}
	return summaries
}

func keyResult(v interface{}) string {
	results, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if q, ok := results["quantitative"].(string); ok && q != "" {
		return q
	}
	if qual, ok := results["qualitative"].([]interface{}); ok && len(qual) > 0 {
		if s, ok := qual[0].(string); ok {
			return s
		}
	}
	return ""
}
