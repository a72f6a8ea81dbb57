package catalog

import (
	"errors"
	"strings"

	"portal-booking/internal/models"
)

var ErrNotFound = errors.New("session offering not found")

var offerings = []models.SessionOffering{
	{
		ID:              "resume-review",
		Title:           "Resume Review",
		DurationLabel:   "30 min",
		PriceMinorUnits: 49900,
		Description:     "A line-by-line review of your resume against the roles you are targeting.",
		Features: []string{
			"ATS keyword check",
			"Section-by-section feedback",
			"Written summary after the call",
		},
	},
	{
		ID:              "career-guidance",
		Title:           "Career Guidance",
		DurationLabel:   "45 min",
		PriceMinorUnits: 79900,
		Description:     "Plan your next move with a mentor who has hired for your field.",
		Features: []string{
			"Role and skills gap analysis",
			"90-day learning plan",
			"Follow-up resources",
		},
	},
	{
		ID:              "mock-interview",
		Title:           "Mock Interview",
		DurationLabel:   "60 min",
		PriceMinorUnits: 99900,
		Description:     "A realistic technical or HR interview followed by detailed feedback.",
		Features: []string{
			"Role-specific question set",
			"Live feedback on answers",
			"Scorecard with improvement areas",
		},
	},
}

type Catalog struct {
	items []models.SessionOffering
}

func New(items []models.SessionOffering) *Catalog {
	cp := make([]models.SessionOffering, len(items))
	for i, item := range items {
		item.Features = append([]string(nil), item.Features...)
		cp[i] = item
	}
	return &Catalog{items: cp}
}

// Default returns the offerings shown on the mentorship page.
func Default() *Catalog {
	return New(offerings)
}

func (c *Catalog) List() []models.SessionOffering {
	out := make([]models.SessionOffering, len(c.items))
	for i, item := range c.items {
		item.Features = append([]string(nil), item.Features...)
		out[i] = item
	}
	return out
}

func (c *Catalog) Get(id string) (models.SessionOffering, error) {
	id = strings.TrimSpace(id)
	for _, item := range c.items {
		if item.ID == id {
			item.Features = append([]string(nil), item.Features...)
			return item, nil
		}
	}
	return models.SessionOffering{}, ErrNotFound
}
