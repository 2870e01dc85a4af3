package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/khrees2412/rosterctl/pkg/models"
	"golang.org/x/text/cases"
)

// Reasons an existing candidate matched an incoming row
const (
	ReasonEmail       = "email"
	ReasonName        = "name"
	ReasonPartialName = "partial name"
	ReasonTags        = "tags"
)

// CalculateMatchScore estimates how closely an existing candidate matches an
// incoming row. Returns a score between 0.0 and 1.0
func CalculateMatchScore(row models.NewRow, existing models.Candidate) float64 {
	score := 0.0

	// Factor 1: Email (60% weight)
	score += matchEmail(row.Email, existing.Email) * 0.6

	// Factor 2: Name (30% weight)
	score += matchName(row.Name, existing.Name) * 0.3

	// Factor 3: Tag overlap (10% weight)
	score += matchTags(row.Tags, existing.Tags) * 0.1

	return score
}

// Reasons lists why the existing candidate looks like the same person as the
// incoming row, strongest first
func Reasons(row models.NewRow, existing models.Candidate) []string {
	reasons := []string{}
	if matchEmail(row.Email, existing.Email) == 1.0 {
		reasons = append(reasons, ReasonEmail)
	}
	switch name := matchName(row.Name, existing.Name); {
	case name == 1.0:
		reasons = append(reasons, ReasonName)
	case name > 0:
		reasons = append(reasons, ReasonPartialName)
	}
	if matchTags(row.Tags, existing.Tags) > 0 {
		reasons = append(reasons, ReasonTags)
	}
	return reasons
}

// Describe joins the reasons for display, e.g. "email, name"
func Describe(row models.NewRow, existing models.Candidate) string {
	reasons := Reasons(row, existing)
	if len(reasons) == 0 {
		return "server match"
	}
	return strings.Join(reasons, ", ")
}

// Summary pairs the match reasons with the weighted score, e.g. "email, name; score 90%"
func Summary(row models.NewRow, existing models.Candidate) string {
	percent := int(math.Round(CalculateMatchScore(row, existing) * 100))
	return fmt.Sprintf("%s; score %d%%", Describe(row, existing), percent)
}

// matchEmail compares addresses case-insensitively
func matchEmail(a, b string) float64 {
	a, b = fold(a), fold(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	return 0
}

// matchName returns 1.0 for the same name and 0.5 when the last names agree
func matchName(a, b string) float64 {
	aParts := nameParts(a)
	bParts := nameParts(b)
	if len(aParts) == 0 || len(bParts) == 0 {
		return 0
	}
	if strings.Join(aParts, " ") == strings.Join(bParts, " ") {
		return 1.0
	}

	// Partial match (same surname)
	aLast := aParts[len(aParts)-1]
	bLast := bParts[len(bParts)-1]
	if len(aParts) > 1 && len(bParts) > 1 && len(aLast) > 1 && aLast == bLast {
		return 0.5
	}

	return 0
}

// matchTags returns the share of incoming tags the existing record already has
func matchTags(incoming, existing models.Tags) float64 {
	if len(incoming) == 0 {
		return 0
	}
	matched := 0
	for _, tag := range incoming {
		for _, have := range existing {
			if fold(tag) == fold(have) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(incoming))
}

func nameParts(name string) []string {
	words := strings.Fields(fold(name))
	parts := []string{}
	for _, word := range words {
		word = strings.Trim(word, ".,")
		if word != "" {
			parts = append(parts, word)
		}
	}
	return parts
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
