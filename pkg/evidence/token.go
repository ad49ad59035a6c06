package evidence

import (
	"fmt"

	"github.com/riskscope/riskscope/pkg/catalog"
)

func registerToken(r *Registry) {
	r.RegisterBands(catalog.Tokenomics, tokenomicsHigh, tokenomicsMedium, tokenomicsLow)
}

func tokenomicsHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s supply is concentrated and unlocked", titleFirst(tokenText(f))),
		Summary: fmt.Sprintf("Tokenomics analysis scored %s. Distribution of %s allows a small group to move the market.",
			scoreText(score), contractText(f)),
		Sources: append([]string{"Token holder distribution"}, sourceIf(f.ContractAddress != "", "Block explorer: "+f.ContractAddress)...),
	}
	if share := percent(f, "top10HolderShare", ""); share != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("The top 10 wallets hold %s of supply.", share))
	}
	if share := percent(f, "teamAllocation", ""); share != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("The team allocation is %s.", share))
	}
	if v, ok := value(f, "vestingMonths"); ok && v == 0 {
		n.RedFlags = append(n.RedFlags, "**No vesting**: team tokens are liquid from launch.")
	}
	if v, ok := value(f, "liquidityLocked"); ok && v == 0 {
		n.RedFlags = append(n.RedFlags, "Liquidity pool tokens are not locked.")
	}
	if len(n.Findings) == 0 {
		n.Findings = append(n.Findings, "Holder data shows a small number of wallets controlling most of the supply.")
	}
	n.RedFlags = append(n.RedFlags, "Concentrated, unlocked supply is the mechanism behind most rug pulls.")
	return n
}

func tokenomicsMedium(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s distribution has notable concentration", titleFirst(tokenText(f))),
		Summary: fmt.Sprintf("Tokenomics analysis scored %s. Supply is moderately concentrated or vesting is short.",
			scoreText(score)),
		Sources: []string{"Token holder distribution"},
	}
	n.Findings = append(n.Findings, fmt.Sprintf("Top 10 holders control %s of supply.", percent(f, "top10HolderShare", "a large share")))
	if v, ok := value(f, "vestingMonths"); ok {
		n.Findings = append(n.Findings, fmt.Sprintf("Team vesting runs for %.0f months.", v))
		if v < 12 {
			n.RedFlags = append(n.RedFlags, "Vesting shorter than a year lets insiders exit early.")
		}
	}
	return n
}

func tokenomicsLow(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s distribution looks healthy", titleFirst(tokenText(f))),
		Summary: fmt.Sprintf("Tokenomics analysis scored %s. Supply on %s is broadly distributed with vesting in place.",
			scoreText(score), contractText(f)),
		Sources: []string{"Token holder distribution"},
	}
	if v, ok := value(f, "vestingMonths"); ok {
		n.Findings = append(n.Findings, fmt.Sprintf("Team tokens vest over %.0f months.", v))
	}
	n.Findings = append(n.Findings, "No single wallet outside exchanges and contracts holds a controlling share.")
	return n
}
