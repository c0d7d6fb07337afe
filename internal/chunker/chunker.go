// Package chunker converts a structured résumé into the sequence of
// semantically-typed chunks the indexer embeds and upserts. It is a pure,
// deterministic, order-stable function of its input: chunker.go never
// fails on a malformed sub-object, it simply drops it.
package chunker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cvmatch/internal/model"
)

// Chunk converts a structured résumé into its chunk sequence, applying a
// different strategy per section kind as described in spec.md §4.1.
// Section order is fixed: summary, skills, experience, projects,
// education, leadership, certifications, publications, awards, then any
// additional_sections in sorted section-name order (additional sections
// have no canonical order in the source document).
func Chunk(cvID string, sec model.Sections) []model.Chunk {
	var out []model.Chunk

	if c, ok := summaryChunk(cvID, sec.Summary); ok {
		out = append(out, c)
	}
	if c, ok := skillsChunk(cvID, sec.Skills); ok {
		out = append(out, c)
	}
	out = append(out, experienceChunks(cvID, sec.Experience)...)
	out = append(out, projectChunks(cvID, sec.Projects)...)
	out = append(out, educationChunks(cvID, sec.Education)...)
	out = append(out, leadershipChunks(cvID, sec.Leadership)...)
	out = append(out, certificationChunks(cvID, sec.Certifications)...)
	out = append(out, publicationChunks(cvID, sec.Publications)...)
	out = append(out, awardChunks(cvID, sec.Awards)...)
	out = append(out, additionalSectionChunks(cvID, sec.AdditionalSections)...)

	return out
}

func summaryChunk(cvID string, s model.Summary) (model.Chunk, bool) {
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return model.Chunk{}, false
	}
	return model.Chunk{
		CvID:     cvID,
		Section:  model.SectionSummary,
		Text:     text,
		Metadata: map[string]string{"type": "summary"},
	}, true
}

func skillsChunk(cvID string, s model.Skills) (model.Chunk, bool) {
	cats := s.Categories()
	if len(cats) == 0 {
		return model.Chunk{}, false
	}
	var values []string
	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
		values = append(values, c.Values...)
	}
	text := strings.Join(values, ", ")
	if strings.TrimSpace(text) == "" {
		return model.Chunk{}, false
	}
	return model.Chunk{
		CvID:    cvID,
		Section: model.SectionSkills,
		Text:    text,
		Metadata: map[string]string{
			"type":       "skills",
			"categories": strings.Join(names, ","),
		},
	}, true
}

func experienceChunks(cvID string, exps []model.Experience) []model.Chunk {
	var out []model.Chunk
	for expIdx, e := range exps {
		for bulletIdx, b := range e.Bullets {
			bullet := strings.TrimSpace(b)
			if bullet == "" {
				continue
			}
			out = append(out, model.Chunk{
				CvID:    cvID,
				Section: model.SectionExperience,
				Text:    fmt.Sprintf("%s - %s", e.Company, bullet),
				Metadata: map[string]string{
					"company":           e.Company,
					"title":             e.Title,
					"location":          e.Location,
					"dates":             e.Dates,
					"experience_index":  strconv.Itoa(expIdx),
					"bullet_index":      strconv.Itoa(bulletIdx),
				},
			})
		}
	}
	return out
}

func projectChunks(cvID string, projects []model.Project) []model.Chunk {
	var out []model.Chunk
	for projIdx, p := range projects {
		base := map[string]string{
			"name":         p.Name,
			"technologies": strings.Join(p.Technologies, ","),
			"link":         p.Link,
			"project_index": strconv.Itoa(projIdx),
		}
		if len(p.Bullets) > 0 {
			for bulletIdx, b := range p.Bullets {
				bullet := strings.TrimSpace(b)
				if bullet == "" {
					continue
				}
				md := cloneMap(base)
				md["bullet_index"] = strconv.Itoa(bulletIdx)
				out = append(out, model.Chunk{
					CvID:     cvID,
					Section:  model.SectionProjects,
					Text:     fmt.Sprintf("%s - %s", p.Name, bullet),
					Metadata: md,
				})
			}
			continue
		}
		desc := strings.TrimSpace(p.Description)
		if desc == "" {
			continue
		}
		md := cloneMap(base)
		md["type"] = "project_description"
		out = append(out, model.Chunk{
			CvID:     cvID,
			Section:  model.SectionProjects,
			Text:     fmt.Sprintf("%s - %s", p.Name, desc),
			Metadata: md,
		})
	}
	return out
}

func educationChunks(cvID string, items []model.Education) []model.Chunk {
	var out []model.Chunk
	for _, e := range items {
		parts := []string{e.Institution, e.Degree, e.Field}
		if e.GPA != "" {
			parts = append(parts, "GPA: "+e.GPA)
		}
		text := joinNonBlank(parts, ", ")
		if text == "" {
			continue
		}
		out = append(out, model.Chunk{
			CvID:    cvID,
			Section: model.SectionEducation,
			Text:    text,
			Metadata: map[string]string{
				"institution": e.Institution,
				"degree":      e.Degree,
				"field":       e.Field,
				"dates":       e.Dates,
			},
		})
	}
	return out
}

func leadershipChunks(cvID string, items []model.Leadership) []model.Chunk {
	var out []model.Chunk
	for _, l := range items {
		text := joinNonBlank([]string{l.Organization, l.Role, l.Description}, ", ")
		if text == "" {
			continue
		}
		out = append(out, model.Chunk{
			CvID:    cvID,
			Section: model.SectionLeadership,
			Text:    text,
			Metadata: map[string]string{
				"organization": l.Organization,
				"role":         l.Role,
				"dates":        l.Dates,
			},
		})
	}
	return out
}

func certificationChunks(cvID string, items []model.Certification) []model.Chunk {
	var out []model.Chunk
	for _, c := range items {
		text := joinNonBlank([]string{c.Name, c.Issuer}, ", ")
		if text == "" {
			continue
		}
		out = append(out, model.Chunk{
			CvID:    cvID,
			Section: model.SectionCertifications,
			Text:    text,
			Metadata: map[string]string{
				"issuer": c.Issuer,
				"dates":  c.Dates,
			},
		})
	}
	return out
}

func publicationChunks(cvID string, items []model.Publication) []model.Chunk {
	var out []model.Chunk
	for _, p := range items {
		text := joinNonBlank([]string{p.Title, p.Venue, p.Authors}, ", ")
		if text == "" {
			continue
		}
		out = append(out, model.Chunk{
			CvID:    cvID,
			Section: model.SectionPublications,
			Text:    text,
			Metadata: map[string]string{
				"venue": p.Venue,
				"dates": p.Dates,
			},
		})
	}
	return out
}

func awardChunks(cvID string, items []model.Award) []model.Chunk {
	var out []model.Chunk
	for _, a := range items {
		text := joinNonBlank([]string{a.Name, a.Issuer}, ", ")
		if text == "" {
			continue
		}
		out = append(out, model.Chunk{
			CvID:    cvID,
			Section: model.SectionAwards,
			Text:    text,
			Metadata: map[string]string{
				"issuer": a.Issuer,
				"dates":  a.Dates,
			},
		})
	}
	return out
}

// additionalSectionChunks handles arbitrary sections that don't fit the
// named fields above: a single string, a list of strings and/or objects,
// or a single object. This is the "tagged variant over section kind"
// dispatch called for by spec.md §9: one uniform branch per shape, with
// objects rendered through stringifyObject. Values of any other type
// (numbers, booleans, nested lists) are dropped.
func additionalSectionChunks(cvID string, extra map[string]any) []model.Chunk {
	var out []model.Chunk
	for _, name := range sortedKeys(extra) {
		switch v := extra[name].(type) {
		case string:
			text := strings.TrimSpace(v)
			if text == "" {
				continue
			}
			out = append(out, model.Chunk{
				CvID:     cvID,
				Section:  name,
				Text:     text,
				Metadata: map[string]string{"type": name},
			})
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					text := strings.TrimSpace(s)
					if text == "" {
						continue
					}
					out = append(out, model.Chunk{
						CvID:     cvID,
						Section:  name,
						Text:     text,
						Metadata: map[string]string{"type": name},
					})
					continue
				}
				if obj, ok := item.(map[string]any); ok {
					text := stringifyObject(obj)
					if text == "" {
						continue
					}
					out = append(out, model.Chunk{
						CvID:     cvID,
						Section:  name,
						Text:     text,
						Metadata: map[string]string{"type": name},
					})
				}
			}
		case map[string]any:
			text := stringifyObject(v)
			if text == "" {
				continue
			}
			out = append(out, model.Chunk{
				CvID:     cvID,
				Section:  name,
				Text:     text,
				Metadata: map[string]string{"type": name},
			})
		}
	}
	return out
}

// stringifyObject renders an unstructured object's salient string values,
// in sorted key order, as the uniform fallback branch for section shapes
// the chunker has no dedicated policy for.
func stringifyObject(obj map[string]any) string {
	var parts []string
	for _, k := range sortedKeys(obj) {
		switch s := obj[k].(type) {
		case string:
			if t := strings.TrimSpace(s); t != "" {
				parts = append(parts, t)
			}
		case fmt.Stringer:
			if t := strings.TrimSpace(s.String()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, ", ")
}

func joinNonBlank(parts []string, sep string) string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, sep)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
