package evidence

import (
	"fmt"

	"github.com/riskscope/riskscope/pkg/catalog"
)

func registerCode(r *Registry) {
	r.RegisterBands(catalog.GithubAuthenticity, githubHigh, githubMedium, githubLow)
}

func githubHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s code activity appears manufactured", projectTitle(f)),
		Summary: fmt.Sprintf("Repository analysis scored %s. Activity in %s does not reflect genuine development.",
			scoreText(score), repoText(f)),
		Sources: append([]string{"GitHub commit and fork history"}, sourceIf(f.RepoURL != "", f.RepoURL)...),
	}
	if f.RepoURL == "" {
		n.Findings = append(n.Findings, "No public repository was linked from project materials.")
		n.RedFlags = append(n.RedFlags, "**Closed source**: claims about the technology cannot be checked.")
		return n
	}
	if share := percent(f, "forkedCodeShare", ""); share != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("%s of the codebase is copied from other projects without attribution.", share))
	}
	if c := count(f, "commitsLast90Days", ""); c != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("%s commits in the last 90 days.", c))
	}
	if len(n.Findings) == 0 {
		n.Findings = append(n.Findings, "Commits are bulk imports with generic messages and no review history.")
	}
	n.RedFlags = append(n.RedFlags,
		"Stars and forks spike without matching issue or pull request activity.",
		"Contract code differs from what the repository publishes.",
	)
	return n
}

func githubMedium(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s repository shows limited development", projectTitle(f)),
		Summary: fmt.Sprintf("Repository analysis scored %s. %s exists but activity is sporadic.",
			scoreText(score), titleFirst(repoText(f))),
		Sources: append([]string{"GitHub commit history"}, sourceIf(f.RepoURL != "", f.RepoURL)...),
	}
	n.Findings = append(n.Findings, fmt.Sprintf("%s commits in the last 90 days.", count(f, "commitsLast90Days", "Few")))
	n.RedFlags = []string{"Large parts of the code are forked from established protocols with minimal changes."}
	return n
}

func githubLow(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s repository shows authentic development", projectTitle(f)),
		Summary: fmt.Sprintf("Repository analysis scored %s. %s has steady, reviewed contributions.",
			scoreText(score), titleFirst(repoText(f))),
		Sources: append([]string{"GitHub commit history"}, sourceIf(f.RepoURL != "", f.RepoURL)...),
	}
	n.Findings = append(n.Findings, fmt.Sprintf("%s commits in the last 90 days.", count(f, "commitsLast90Days", "Regular")))
	n.Findings = append(n.Findings, "Pull requests receive review before merge.")
	return n
}
