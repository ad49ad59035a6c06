package evidence

import (
	"fmt"

	"github.com/riskscope/riskscope/pkg/catalog"
)

// associateRiskThreshold is the entity score above which an associate counts as high risk.
const associateRiskThreshold = 60

func registerNetwork(r *Registry) {
	r.RegisterBands(catalog.ContaminatedNetwork, networkHigh, networkMedium, networkLow)
}

func networkHigh(score float64, f Facts) Narrative {
	risky := riskyAssociates(f, associateRiskThreshold)
	n := Narrative{
		Headline: fmt.Sprintf("%s is connected to a contaminated network", projectTitle(f)),
		Sources:  []string{"On-chain wallet clustering", "Public team and advisor disclosures"},
	}

	if len(risky) == 0 {
		n.Summary = fmt.Sprintf("Network analysis scored %s. The collector flagged strong links to "+
			"previously failed or fraudulent projects, but did not name the entities involved.", scoreText(score))
		n.Findings = []string{
			"Multiple wallets or individuals tied to the team overlap with projects that ended badly.",
			"The overlap is concentrated in funding and advisory relationships.",
		}
		n.RedFlags = []string{
			"**Association with failed projects** is the single strongest predictor of repeat outcomes.",
			"Entity names were not disclosed; request them before committing capital.",
		}
		return n
	}

	names := make([]string, 0, len(risky))
	for _, e := range risky {
		names = append(names, e.Name)
	}
	n.Summary = fmt.Sprintf("Network analysis scored %s. %d high-risk %s appear around %s: %s.",
		scoreText(score), len(risky), plural(len(risky), "entity", "entities"), project(f), joinNames(names, 4))

	for _, e := range risky {
		n.Findings = append(n.Findings, describeEntity(e))
	}
	for _, e := range risky {
		if e.Outcome != "" {
			n.RedFlags = append(n.RedFlags, fmt.Sprintf("%s was previously involved in a **%s**.", e.Name, e.Outcome))
		}
	}
	n.RedFlags = append(n.RedFlags, "Repeat actors frequently reuse the same advisors, market makers and launch playbooks.")
	if len(f.TeamMembers) > 0 {
		n.Findings = append(n.Findings, fmt.Sprintf("Team members reviewed: %s.", teamText(f)))
	}
	return n
}

func networkMedium(score float64, f Facts) Narrative {
	risky := riskyAssociates(f, associateRiskThreshold)
	watch := riskyAssociates(f, 30)
	n := Narrative{
		Headline: fmt.Sprintf("%s has indirect ties to questionable projects", projectTitle(f)),
		Summary: fmt.Sprintf("Network analysis scored %s. Some connections warrant follow-up, "+
			"but none establish a direct pattern of misconduct.", scoreText(score)),
		Sources: []string{"On-chain wallet clustering", "Public team and advisor disclosures"},
	}
	switch {
	case len(watch) > 0:
		for _, e := range watch {
			n.Findings = append(n.Findings, describeEntity(e))
		}
	default:
		n.Findings = []string{"Second-degree links exist through shared investors or advisors."}
	}
	if len(risky) > 0 {
		n.RedFlags = append(n.RedFlags, fmt.Sprintf("%d associated %s carry a high individual risk score.",
			len(risky), plural(len(risky), "entity", "entities")))
	}
	n.RedFlags = append(n.RedFlags, "*Indirect* ties should be confirmed with the team before investing.")
	return n
}

func networkLow(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("No contaminated network detected for %s", project(f)),
		Summary: fmt.Sprintf("Network analysis scored %s. No meaningful overlap with failed or "+
			"fraudulent projects was found.", scoreText(score)),
		Sources: []string{"On-chain wallet clustering"},
	}
	if len(f.Associates) > 0 {
		n.Findings = append(n.Findings, fmt.Sprintf("%d associated %s reviewed; none exceeded the risk threshold.",
			len(f.Associates), plural(len(f.Associates), "entity was", "entities were")))
	} else {
		n.Findings = append(n.Findings, "No associated entities were reported by the collector.")
	}
	n.Findings = append(n.Findings, "Funding and advisory relationships appear independent of known bad actors.")
	return n
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
