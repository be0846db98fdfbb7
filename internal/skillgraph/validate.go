package skillgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/dash/internal/errs"
)

// validateSkills performs all structural checks on the given skill set and
// fills in each skill's parsed Path. It returns a ConfigurationError listing
// every problem found, or nil if the set is consistent.
func validateSkills(skills []Skill) error {
	var problems []string

	if len(skills) == 0 {
		return &errs.ConfigurationError{Problems: []string{"catalog is empty"}}
	}

	idSet := make(map[string]bool, len(skills))

	for i := range skills {
		s := &skills[i]

		if idSet[s.ID] {
			problems = append(problems, fmt.Sprintf("duplicate skill ID: %q", s.ID))
		}
		idSet[s.ID] = true

		p, err := ParseID(s.ID)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			s.Path = p
			if p.Grade != s.Grade {
				problems = append(problems, fmt.Sprintf("skill %q: grade_level %s does not match id grade %s", s.ID, s.Grade, p.Grade))
			}
		}

		if !s.Grade.Valid() {
			problems = append(problems, fmt.Sprintf("skill %q: grade_level %d out of range K..12", s.ID, s.Grade))
		}
		if s.ForgettingRate <= 0 {
			problems = append(problems, fmt.Sprintf("skill %q: forgetting_rate must be > 0, got %g", s.ID, s.ForgettingRate))
		}
		if s.Difficulty < 0 || s.Difficulty > 1 {
			problems = append(problems, fmt.Sprintf("skill %q: difficulty must be in [0, 1], got %g", s.ID, s.Difficulty))
		}
	}

	// Check for dangling prerequisites
	for _, s := range skills {
		for _, prereqID := range s.Prerequisites {
			if prereqID == s.ID {
				problems = append(problems, fmt.Sprintf("skill %q lists itself as a prerequisite", s.ID))
				continue
			}
			if !idSet[prereqID] {
				problems = append(problems, fmt.Sprintf("skill %q references nonexistent prerequisite %q", s.ID, prereqID))
			}
		}
	}

	if cycle := cycleMembers(skills); len(cycle) > 0 {
		problems = append(problems, fmt.Sprintf("cycle detected involving skills: %s", strings.Join(cycle, ", ")))
	}

	if len(problems) > 0 {
		return &errs.ConfigurationError{Problems: problems}
	}
	return nil
}

// cycleMembers runs Kahn's algorithm over the prerequisite edges and returns
// the ids left with a positive in-degree, sorted. Edges to unknown ids are
// ignored; they are reported separately.
func cycleMembers(skills []Skill) []string {
	known := make(map[string]bool, len(skills))
	for _, s := range skills {
		known[s.ID] = true
	}

	inDegree := make(map[string]int, len(skills))
	adjList := make(map[string][]string)
	for _, s := range skills {
		for _, prereqID := range s.Prerequisites {
			if !known[prereqID] || prereqID == s.ID {
				continue
			}
			inDegree[s.ID]++
			adjList[prereqID] = append(adjList[prereqID], s.ID)
		}
	}

	var queue []string
	for _, s := range skills {
		if inDegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	visited := make(map[string]bool, len(skills))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, depID := range adjList[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	var cycle []string
	for id, deg := range inDegree {
		if deg > 0 && !visited[id] {
			cycle = append(cycle, id)
		}
	}
	sort.Strings(cycle)
	return cycle
}
