package matcher

import (
	"testing"

	"github.com/khrees2412/rosterctl/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestReasons(t *testing.T) {
	row := models.NewRow{Name: "Ada Lovelace", Email: "Ada@Example.com", Tags: models.Tags{"math"}}

	tests := []struct {
		name     string
		existing models.Candidate
		want     []string
	}{
		{
			name:     "email and name",
			existing: models.Candidate{Name: "ada  lovelace", Email: "ada@example.com"},
			want:     []string{ReasonEmail, ReasonName},
		},
		{
			name:     "email only",
			existing: models.Candidate{Name: "Augusta King", Email: "ADA@EXAMPLE.COM"},
			want:     []string{ReasonEmail},
		},
		{
			name:     "surname with shared tag",
			existing: models.Candidate{Name: "A. Lovelace", Email: "countess@example.com", Tags: models.Tags{"Math", "poetry"}},
			want:     []string{ReasonPartialName, ReasonTags},
		},
		{
			name:     "nothing in common",
			existing: models.Candidate{Name: "Grace Hopper", Email: "grace@example.com"},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reasons(row, tt.existing))
		})
	}
}

func TestDescribe(t *testing.T) {
	row := models.NewRow{Name: "Ada", Email: "ada@example.com"}
	assert.Equal(t, "email, name", Describe(row, models.Candidate{Name: "Ada", Email: "ada@example.com"}))
	assert.Equal(t, "server match", Describe(row, models.Candidate{ID: models.NumericID("7")}))
}

func TestCalculateMatchScore(t *testing.T) {
	row := models.NewRow{Name: "Ada Lovelace", Email: "ada@example.com", Tags: models.Tags{"math", "engines"}}

	exact := CalculateMatchScore(row, models.Candidate{Name: "Ada Lovelace", Email: "ada@example.com", Tags: models.Tags{"math", "engines"}})
	assert.InDelta(t, 1.0, exact, 0.0001)

	emailOnly := CalculateMatchScore(row, models.Candidate{Name: "Someone Else", Email: "ada@example.com"})
	assert.InDelta(t, 0.6, emailOnly, 0.0001)

	surname := CalculateMatchScore(row, models.Candidate{Name: "Augusta Lovelace", Tags: models.Tags{"math"}})
	assert.InDelta(t, 0.15+0.05, surname, 0.0001)

	assert.Zero(t, CalculateMatchScore(models.NewRow{}, models.Candidate{}))
}

func TestSummary(t *testing.T) {
	row := models.NewRow{Name: "Ada", Email: "ada@example.com"}
	assert.Equal(t, "email, name; score 90%", Summary(row, models.Candidate{Name: "Ada", Email: "ada@example.com"}))
	assert.Equal(t, "email; score 60%", Summary(row, models.Candidate{Name: "Grace", Email: "ada@example.com"}))
	assert.Equal(t, "server match; score 0%", Summary(row, models.Candidate{}))
}
