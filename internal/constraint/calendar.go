// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package constraint

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Window is one campaign period. A question matches when it mentions
// both the season keyword and the year.
type Window struct {
	// Name is the campaign name as the marketing documents write it.
	Name string `json:"name" yaml:"name"`

	// Season is the lowercase keyword looked for in questions.
	Season string `json:"season" yaml:"season"`

	// Year is the four-digit year looked for in questions.
	Year string `json:"year" yaml:"year"`

	// Start and End bound the window, inclusive, as YYYY-MM-DD.
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Calendar holds the known campaign windows.
type Calendar struct {
	Windows []Window `json:"windows" yaml:"windows"`
}

// DefaultCalendar returns the built-in campaign windows.
func DefaultCalendar() Calendar {
	return Calendar{Windows: []Window{
		{
			Name:   "Summer Beverages 2017",
			Season: "summer",
			Year:   "2017",
			Start:  "2017-06-01",
			End:    "2017-06-30",
		},
		{
			Name:   "Winter Classics 2017",
			Season: "winter",
			Year:   "2017",
			Start:  "2017-12-01",
			End:    "2017-12-31",
		},
	}}
}

// LoadCalendar reads campaign windows from a YAML file. An empty path
// returns the built-in calendar.
func LoadCalendar(path string) (Calendar, error) {
	if path == "" {
		return DefaultCalendar(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Calendar{}, fmt.Errorf("reading calendar: %w", err)
	}
	var cal Calendar
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return Calendar{}, fmt.Errorf("parsing calendar %s: %w", path, err)
	}
	if len(cal.Windows) == 0 {
		return Calendar{}, fmt.Errorf("calendar %s defines no windows", path)
	}
	for i, w := range cal.Windows {
		if w.Season == "" || w.Year == "" || w.Start == "" || w.End == "" {
			return Calendar{}, fmt.Errorf("calendar %s window %d is incomplete", path, i)
		}
	}
	return cal, nil
}

// Match returns the first window whose season keyword and year both
// appear in the question.
func (c Calendar) Match(question string) (Window, bool) {
	lower := strings.ToLower(question)
	for _, w := range c.Windows {
		if strings.Contains(lower, w.Season) && strings.Contains(lower, w.Year) {
			return w, true
		}
	}
	return Window{}, false
}
