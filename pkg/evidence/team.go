package evidence

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/riskscope/riskscope/pkg/catalog"
)

func registerTeam(r *Registry) {
	r.RegisterBands(catalog.TeamIdentity, identityHigh, identityMedium, identityLow)
	r.RegisterBands(catalog.TeamCompetence, competenceHigh, competenceMedium, competenceLow)
	r.RegisterBands(catalog.FounderDistraction, distractionHigh, distractionMedium, distractionLow)
	r.RegisterBands(catalog.BusFactor, busFactorHigh, busFactorMedium, busFactorLow)
}

// Team identity

func identityHigh(score float64, f Facts) Narrative {
	verified, anon := splitVerified(f.TeamMembers)
	n := Narrative{
		Headline: fmt.Sprintf("%s team identities could not be verified", projectTitle(f)),
		Sources:  []string{"LinkedIn and professional registries", "Conference and press appearances"},
	}
	switch {
	case len(f.TeamMembers) == 0:
		n.Summary = fmt.Sprintf("Identity analysis scored %s. No named team members were disclosed.", scoreText(score))
		n.Findings = []string{"The project does not publish a team page or named contributors."}
		n.RedFlags = []string{"**Fully anonymous team**: there is no one accountable if funds go missing."}
	default:
		n.Summary = fmt.Sprintf("Identity analysis scored %s. %d of %d disclosed team members could not be tied to a real-world identity.",
			scoreText(score), len(anon), len(f.TeamMembers))
		for _, m := range anon {
			n.Findings = append(n.Findings, fmt.Sprintf("%s has no verifiable history outside this project.", describeMember(m)))
		}
		if len(verified) > 0 {
			n.Findings = append(n.Findings, fmt.Sprintf("Verified: %s.", joinNames(memberNames(verified), 3)))
		}
		n.RedFlags = append(n.RedFlags, "Profiles show signs of recent creation or stock imagery.")
	}
	if v, ok := value(f, "profileAgeDays"); ok && v < 90 {
		n.RedFlags = append(n.RedFlags, fmt.Sprintf("Team profiles are on average only %.0f days old.", v))
	}
	n.RedFlags = append(n.RedFlags, "*Anonymous founders* correlate strongly with exit scams in early-stage tokens.")
	return n
}

func identityMedium(score float64, f Facts) Narrative {
	verified, anon := splitVerified(f.TeamMembers)
	n := Narrative{
		Headline: fmt.Sprintf("%s team is partially identified", projectTitle(f)),
		Summary: fmt.Sprintf("Identity analysis scored %s. Some team members are publicly known while others remain pseudonymous.",
			scoreText(score)),
		Sources: []string{"LinkedIn and professional registries"},
	}
	if len(verified) > 0 {
		n.Findings = append(n.Findings, fmt.Sprintf("Publicly verified: %s.", joinNames(memberNames(verified), 3)))
	}
	if len(anon) > 0 {
		n.Findings = append(n.Findings, fmt.Sprintf("Pseudonymous: %s.", joinNames(memberNames(anon), 3)))
		n.RedFlags = append(n.RedFlags, fmt.Sprintf("%d %s could not be verified.",
			len(anon), plural(len(anon), "contributor", "contributors")))
	}
	if len(f.TeamMembers) == 0 {
		n.Findings = append(n.Findings, "Only partial team information is available from public sources.")
	}
	return n
}

func identityLow(score float64, f Facts) Narrative {
	verified, _ := splitVerified(f.TeamMembers)
	n := Narrative{
		Headline: fmt.Sprintf("%s team is publicly doxxed", projectTitle(f)),
		Summary: fmt.Sprintf("Identity analysis scored %s. Team members are identifiable through established public profiles.",
			scoreText(score)),
		Sources: []string{"LinkedIn and professional registries", "Conference and press appearances"},
	}
	for _, m := range verified {
		n.Findings = append(n.Findings, fmt.Sprintf("%s is verified.", describeMember(m)))
	}
	if len(verified) == 0 {
		n.Findings = append(n.Findings, fmt.Sprintf("Identities for %s are consistent across platforms.", teamText(f)))
	}
	return n
}

// Team competence

func competenceHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s team lacks relevant experience", projectTitle(f)),
		Summary: fmt.Sprintf("Competence analysis scored %s. The team shows little evidence of having shipped comparable products.",
			scoreText(score)),
		Sources: []string{"Professional history", "Prior project records"},
	}
	var shipped int
	for _, m := range f.TeamMembers {
		shipped += len(m.PriorProjects)
	}
	if shipped == 0 {
		n.Findings = append(n.Findings, fmt.Sprintf("No prior shipped projects were found for %s.", teamText(f)))
	} else {
		n.Findings = append(n.Findings, fmt.Sprintf("Only %d prior %s across the whole team.",
			shipped, plural(shipped, "project was found", "projects were found")))
	}
	if v, ok := value(f, "technicalRoles"); ok && v == 0 {
		n.RedFlags = append(n.RedFlags, "No team member holds a technical role.")
	}
	n.RedFlags = append(n.RedFlags, "Claimed credentials could not be matched to verifiable employers or degrees.")
	n.RedFlags = append(n.RedFlags, "The roadmap exceeds what a team of this background has previously delivered.")
	return n
}

func competenceMedium(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s team has mixed experience", projectTitle(f)),
		Summary: fmt.Sprintf("Competence analysis scored %s. Relevant skills are present but unevenly distributed.",
			scoreText(score)),
		Sources: []string{"Professional history"},
	}
	for _, m := range f.TeamMembers {
		if len(m.PriorProjects) > 0 {
			n.Findings = append(n.Findings, fmt.Sprintf("%s previously worked on %s.",
				describeMember(m), joinNames(m.PriorProjects, 3)))
		}
	}
	if len(n.Findings) == 0 {
		n.Findings = append(n.Findings, "Experience is largely adjacent (web2 or finance) rather than protocol engineering.")
	}
	n.RedFlags = []string{"Key technical roles appear to be filled by contractors rather than core staff."}
	return n
}

func competenceLow(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s team has a strong delivery record", projectTitle(f)),
		Summary: fmt.Sprintf("Competence analysis scored %s. Team members have shipped comparable products before.",
			scoreText(score)),
		Sources: []string{"Professional history", "Prior project records"},
	}
	for _, m := range f.TeamMembers {
		if len(m.PriorProjects) > 0 {
			n.Findings = append(n.Findings, fmt.Sprintf("%s: %s.", describeMember(m), joinNames(m.PriorProjects, 3)))
		}
	}
	if len(n.Findings) == 0 {
		n.Findings = append(n.Findings, fmt.Sprintf("%s brings relevant engineering and product experience.", titleFirst(teamText(f))))
	}
	return n
}

// Founder distraction

func distractionHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s founders are spread across multiple ventures", projectTitle(f)),
		Summary: fmt.Sprintf("Focus analysis scored %s. Founders are simultaneously promoting several unrelated projects.",
			scoreText(score)),
		Sources: []string{"Founder social activity", "Company registries"},
	}
	active := count(f, "concurrentProjects", "")
	if active != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("Founders are publicly involved in %s concurrent projects.", active))
	}
	for _, m := range f.TeamMembers {
		if len(m.PriorProjects) >= 2 {
			n.Findings = append(n.Findings, fmt.Sprintf("%s is also active on %s.", describeMember(m), joinNames(m.PriorProjects, 3)))
		}
	}
	n.RedFlags = []string{
		"**Serial launches** suggest the project may be abandoned once attention moves on.",
		"Less than a fifth of founder posts concern this project.",
	}
	return n
}

func distractionMedium(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s founders have outside commitments", projectTitle(f)),
		Summary: fmt.Sprintf("Focus analysis scored %s. Founders hold at least one other active role.",
			scoreText(score)),
		Findings: []string{fmt.Sprintf("%s divide time between this project and other work.", titleFirst(teamText(f)))},
		RedFlags: []string{"Part-time leadership can slow delivery on the published roadmap."},
		Sources:  []string{"Founder social activity"},
	}
}

func distractionLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s founders are focused on the project", projectTitle(f)),
		Summary: fmt.Sprintf("Focus analysis scored %s. Founder activity centres on %s.",
			scoreText(score), project(f)),
		Findings: []string{"No competing ventures were found in founder activity."},
		Sources:  []string{"Founder social activity"},
	}
}

// Bus factor

func busFactorHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s depends on a single contributor", projectTitle(f)),
		Summary: fmt.Sprintf("Bus factor analysis scored %s. Most code and operational access sits with one person.",
			scoreText(score)),
		Sources: []string{"Repository commit history"},
	}
	if share := percent(f, "topContributorShare", ""); share != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("The top contributor authored %s of commits in %s.", share, repoText(f)))
	} else {
		n.Findings = append(n.Findings, fmt.Sprintf("Commit history in %s is dominated by one author.", repoText(f)))
	}
	n.RedFlags = []string{"Loss of one person would halt development and key management."}
	return n
}

func busFactorMedium(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s has a small core of contributors", projectTitle(f)),
		Summary:  fmt.Sprintf("Bus factor analysis scored %s. Two or three people carry most of the work.", scoreText(score)),
		Findings: []string{fmt.Sprintf("%s active contributors over the last 90 days.", count(f, "activeContributors", "Few"))},
		Sources:  []string{"Repository commit history"},
	}
}

func busFactorLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s has a healthy contributor base", projectTitle(f)),
		Summary:  fmt.Sprintf("Bus factor analysis scored %s. Work is spread across several maintainers.", scoreText(score)),
		Findings: []string{fmt.Sprintf("%s active contributors over the last 90 days.", count(f, "activeContributors", "Several"))},
		Sources:  []string{"Repository commit history"},
	}
}

func titleFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
