package evidence

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func scoreText(score float64) string {
	return fmt.Sprintf("%.0f/100", math.Round(score))
}

// value returns a numeric fact and whether it was supplied.
func value(f Facts, key string) (float64, bool) {
	if f.Metrics == nil {
		return 0, false
	}
	v, ok := f.Metrics[key]
	return v, ok
}

// percent formats a 0-100 numeric fact, or returns def when absent.
func percent(f Facts, key, def string) string {
	if v, ok := value(f, key); ok {
		return fmt.Sprintf("%.0f%%", v)
	}
	return def
}

// count formats an integer-valued fact, or returns def when absent.
func count(f Facts, key, def string) string {
	if v, ok := value(f, key); ok {
		return fmt.Sprintf("%.0f", v)
	}
	return def
}

// ratio formats a fractional fact with two places, or returns def when absent.
func ratio(f Facts, key, def string) string {
	if v, ok := value(f, key); ok {
		return fmt.Sprintf("%.2f", v)
	}
	return def
}

func project(f Facts) string {
	return orDefault(f.ProjectName, "the project")
}

func projectTitle(f Facts) string {
	return orDefault(f.ProjectName, "The project")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// joinNames renders up to max names as "A, B and C", summarising the rest.
func joinNames(names []string, max int) string {
	switch {
	case len(names) == 0:
		return ""
	case len(names) == 1:
		return names[0]
	}
	if len(names) > max {
		shown := append([]string(nil), names[:max]...)
		return strings.Join(shown, ", ") + fmt.Sprintf(" and %d others", len(names)-max)
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func memberNames(members []TeamMember) []string {
	var out []string
	for _, m := range members {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	return out
}

func teamText(f Facts) string {
	if names := memberNames(f.TeamMembers); len(names) > 0 {
		return joinNames(names, 3)
	}
	return "the core team"
}

func splitVerified(members []TeamMember) (verified, anonymous []TeamMember) {
	for _, m := range members {
		if m.Verified {
			verified = append(verified, m)
		} else {
			anonymous = append(anonymous, m)
		}
	}
	return verified, anonymous
}

func describeMember(m TeamMember) string {
	name := orDefault(m.Name, "Unnamed contributor")
	if m.Role != "" {
		name = fmt.Sprintf("%s (%s)", name, titleCase(m.Role))
	}
	if m.Handle != "" {
		name += " @" + strings.TrimPrefix(m.Handle, "@")
	}
	return name
}

// riskyAssociates returns associates above threshold, highest risk first,
// ties broken by name so ordering is stable.
func riskyAssociates(f Facts, threshold float64) []Entity {
	var out []Entity
	for _, e := range f.Associates {
		if e.Name != "" && e.RiskScore > threshold {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func describeEntity(e Entity) string {
	s := "**" + e.Name + "**"
	if e.Relation != "" {
		s += ", " + e.Relation
	}
	if e.Outcome != "" {
		s += fmt.Sprintf(", linked to a prior %s", e.Outcome)
	}
	return s + fmt.Sprintf(" (risk %.0f, confidence %.0f%%)", e.RiskScore, e.Confidence)
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func contractText(f Facts) string {
	if f.ContractAddress == "" {
		return "the token contract"
	}
	s := "contract `" + shortAddress(f.ContractAddress) + "`"
	if f.Chain != "" {
		s += " on " + titleCase(f.Chain)
	}
	return s
}

func tokenText(f Facts) string {
	if f.TokenSymbol == "" {
		return "the token"
	}
	return "$" + strings.TrimPrefix(strings.ToUpper(f.TokenSymbol), "$")
}

func handleText(f Facts) string {
	if f.TwitterHandle == "" {
		return "the official account"
	}
	return "@" + strings.TrimPrefix(f.TwitterHandle, "@")
}

func repoText(f Facts) string {
	return orDefault(f.RepoURL, "the public repository")
}

func communityText(f Facts) string {
	if f.DiscordServer == "" {
		return "the community channels"
	}
	return "the " + f.DiscordServer + " Discord"
}

func keywordText(f Facts, max int) string {
	if len(f.Keywords) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(f.Keywords))
	for _, k := range f.Keywords {
		quoted = append(quoted, `"`+k+`"`)
	}
	return joinNames(quoted, max)
}

// sourceIf returns []string{src} when cond holds, for building source lists.
func sourceIf(cond bool, src string) []string {
	if cond {
		return []string{src}
	}
	return nil
}
