package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvmatch/internal/model"
)

func TestChunk_Counts(t *testing.T) {
	sec := model.Sections{
		Summary: model.Summary{Text: "S"},
		Skills:  model.Skills{Languages: []string{"Go"}},
		Experience: []model.Experience{
			{Company: "Acme", Bullets: []string{"Led X", "Built Y"}},
		},
		Projects: []model.Project{
			{Name: "P"},
		},
	}

	chunks := Chunk("cv-1", sec)
	require.Len(t, chunks, 4)

	var experience, skills, summary int
	for _, c := range chunks {
		switch c.Section {
		case model.SectionExperience:
			experience++
		case model.SectionSkills:
			skills++
		case model.SectionSummary:
			summary++
		}
	}
	assert.Equal(t, 2, experience)
	assert.Equal(t, 1, skills)
	assert.Equal(t, 1, summary)

	assert.Equal(t, "Acme - Led X", chunks[2].Text)
	assert.Equal(t, "Acme - Built Y", chunks[3].Text)
}

func TestChunk_SectionSetIsClosed(t *testing.T) {
	sec := model.Sections{
		Summary:        model.Summary{Text: "summary text"},
		Skills:         model.Skills{Other: []string{"x"}},
		Experience:     []model.Experience{{Company: "A", Bullets: []string{"did stuff"}}},
		Projects:       []model.Project{{Name: "proj", Description: "a description"}},
		Education:      []model.Education{{Institution: "MIT", Degree: "BS", Field: "CS"}},
		Leadership:     []model.Leadership{{Organization: "Club", Role: "Lead"}},
		Certifications: []model.Certification{{Name: "Cert", Issuer: "Body"}},
		Publications:   []model.Publication{{Title: "Paper", Venue: "Venue"}},
		Awards:         []model.Award{{Name: "Award", Issuer: "Body"}},
	}

	known := map[string]bool{
		model.SectionSummary: true, model.SectionSkills: true,
		model.SectionExperience: true, model.SectionProjects: true,
		model.SectionEducation: true, model.SectionLeadership: true,
		model.SectionCertifications: true, model.SectionPublications: true,
		model.SectionAwards: true,
	}

	for _, c := range Chunk("cv-2", sec) {
		assert.NotEmpty(t, c.Text)
		assert.Equal(t, c.Text, trimmed(c.Text))
		assert.True(t, known[c.Section], "unexpected section %q", c.Section)
	}
}

func TestChunk_ProjectFallsBackToDescriptionWhenNoBullets(t *testing.T) {
	sec := model.Sections{
		Projects: []model.Project{
			{Name: "NoBullets", Description: "  does a thing  "},
		},
	}
	chunks := Chunk("cv-3", sec)
	require.Len(t, chunks, 1)
	assert.Equal(t, "NoBullets - does a thing", chunks[0].Text)
	assert.Equal(t, "project_description", chunks[0].Metadata["type"])
}

func TestChunk_BlankBulletsDropped(t *testing.T) {
	sec := model.Sections{
		Experience: []model.Experience{
			{Company: "Acme", Bullets: []string{"  ", "Real bullet", ""}},
		},
	}
	chunks := Chunk("cv-4", sec)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Acme - Real bullet", chunks[0].Text)
}

func TestChunk_EmptySectionsProduceNoChunks(t *testing.T) {
	chunks := Chunk("cv-5", model.Sections{})
	assert.Empty(t, chunks)
}

func TestChunk_Deterministic(t *testing.T) {
	sec := model.Sections{
		Summary: model.Summary{Text: "S"},
		Experience: []model.Experience{
			{Company: "Acme", Bullets: []string{"One", "Two"}},
		},
	}
	a := Chunk("cv-6", sec)
	b := Chunk("cv-6", sec)
	assert.Equal(t, a, b)
}

func trimmed(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
