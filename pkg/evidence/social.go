package evidence

import (
	"fmt"

	"github.com/riskscope/riskscope/pkg/catalog"
)

func registerSocial(r *Registry) {
	r.RegisterBands(catalog.TweetFocus, tweetFocusHigh, tweetFocusMedium, tweetFocusLow)
	r.RegisterBands(catalog.MercenaryKeywords, mercenaryHigh, mercenaryMedium, mercenaryLow)
	r.RegisterBands(catalog.EngagementAuthenticity, engagementHigh, engagementMedium, engagementLow)
	r.RegisterBands(catalog.ArtificialHype, hypeHigh, hypeMedium, hypeLow)
	r.RegisterBands(catalog.MessageTimeEntropy, messageTimeHigh, messageTimeMedium, messageTimeLow)
	r.RegisterBands(catalog.AccountAgeEntropy, accountAgeHigh, accountAgeMedium, accountAgeLow)
}

func twitterSource(f Facts) []string {
	return append([]string{"Twitter/X timeline"}, sourceIf(f.TwitterHandle != "", "https://x.com/"+trimAt(f.TwitterHandle))...)
}

func discordSource(f Facts) []string {
	return append([]string{"Discord message history"}, sourceIf(f.DiscordServer != "", "Discord: "+f.DiscordServer)...)
}

// Tweet focus

func tweetFocusHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s posts focus on price, not product", handleTitle(f)),
		Summary: fmt.Sprintf("Content analysis scored %s. Most posts from %s discuss price action, listings and giveaways.",
			scoreText(score), handleText(f)),
		Sources: twitterSource(f),
	}
	if share := percent(f, "priceTweetShare", ""); share != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("%s of recent posts reference price or returns.", share))
	}
	n.Findings = append(n.Findings, "Product updates and technical content are rare or absent.")
	n.RedFlags = []string{"Price-led messaging targets speculators rather than users."}
	return n
}

func tweetFocusMedium(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s posts mix product and promotion", handleTitle(f)),
		Summary: fmt.Sprintf("Content analysis scored %s. Roughly %s of posts from %s are promotional.",
			scoreText(score), percent(f, "priceTweetShare", "half"), handleText(f)),
		Findings: []string{"Development updates appear, but are outnumbered by marketing."},
		Sources:  twitterSource(f),
	}
}

func tweetFocusLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s posts focus on the product", handleTitle(f)),
		Summary:  fmt.Sprintf("Content analysis scored %s. Posts from %s centre on development and usage.", scoreText(score), handleText(f)),
		Findings: []string{"Regular release notes and technical threads."},
		Sources:  twitterSource(f),
	}
}

// Mercenary keywords

func mercenaryHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s messaging relies on mercenary language", projectTitle(f)),
		Summary: fmt.Sprintf("Keyword analysis scored %s. Community and social channels are saturated with get-rich-quick terms.",
			scoreText(score)),
		Sources: append(twitterSource(f), discordSource(f)...),
	}
	if kw := keywordText(f, 5); kw != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("Frequent terms: %s.", kw))
	} else {
		n.Findings = append(n.Findings, `Terms such as "100x", "moon" and "guaranteed" dominate discussion.`)
	}
	n.RedFlags = []string{
		"**Return promises** are a hallmark of pump-and-dump campaigns.",
		fmt.Sprintf("Moderators in %s amplify rather than remove these messages.", communityText(f)),
	}
	return n
}

func mercenaryMedium(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s messaging contains some hype terms", projectTitle(f)),
		Summary:  fmt.Sprintf("Keyword analysis scored %s. Speculative language appears alongside substantive discussion.", scoreText(score)),
		Sources:  twitterSource(f),
	}
	if kw := keywordText(f, 3); kw != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("Observed terms include %s.", kw))
	}
	return n
}

func mercenaryLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s messaging is measured", projectTitle(f)),
		Summary:  fmt.Sprintf("Keyword analysis scored %s. Little return-focused language was found.", scoreText(score)),
		Findings: []string{fmt.Sprintf("Discussion in %s is mostly about usage and governance.", communityText(f))},
		Sources:  twitterSource(f),
	}
}

// Engagement authenticity

func engagementHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s engagement is largely inauthentic", handleTitle(f)),
		Summary: fmt.Sprintf("Engagement analysis scored %s. Likes, replies and followers of %s show bot patterns.",
			scoreText(score), handleText(f)),
		Sources: twitterSource(f),
	}
	if bots := percent(f, "botRatio", ""); bots != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("An estimated %s of followers are automated accounts.", bots))
	}
	if r := ratio(f, "engagementRate", ""); r != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("Engagement rate is %s, out of line with follower count.", r))
	}
	if len(n.Findings) == 0 {
		n.Findings = append(n.Findings, "Replies are generic and posted within seconds of each tweet.")
	}
	n.RedFlags = []string{"**Purchased engagement** inflates apparent community size."}
	return n
}

func engagementMedium(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s engagement is partly inorganic", handleTitle(f)),
		Summary:  fmt.Sprintf("Engagement analysis scored %s. A meaningful minority of interactions look automated.", scoreText(score)),
		Findings: []string{fmt.Sprintf("Estimated bot share: %s.", percent(f, "botRatio", "unknown"))},
		Sources:  twitterSource(f),
	}
}

func engagementLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s engagement looks organic", handleTitle(f)),
		Summary:  fmt.Sprintf("Engagement analysis scored %s. Interactions come from established, varied accounts.", scoreText(score)),
		Findings: []string{"Reply content is specific and conversational."},
		Sources:  twitterSource(f),
	}
}

// Artificial hype

func hypeHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s attention is driven by paid promotion", projectTitle(f)),
		Summary: fmt.Sprintf("Hype analysis scored %s. Mentions of %s surge in coordinated bursts.",
			scoreText(score), project(f)),
		Sources: []string{"Mention volume time series", "Influencer disclosures"},
	}
	if c := count(f, "paidInfluencers", ""); c != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("%s influencers posted near-identical promotions.", c))
	}
	n.Findings = append(n.Findings, "Mention spikes are not tied to product releases or news.")
	n.RedFlags = []string{"Undisclosed paid shilling precedes most pump-and-dump exits."}
	return n
}

func hypeMedium(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s has some coordinated promotion", projectTitle(f)),
		Summary:  fmt.Sprintf("Hype analysis scored %s. Organic and paid attention are mixed.", scoreText(score)),
		Findings: []string{"Several promotional bursts coincide with influencer campaigns."},
		Sources:  []string{"Mention volume time series"},
	}
}

func hypeLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s attention appears organic", projectTitle(f)),
		Summary:  fmt.Sprintf("Hype analysis scored %s. Mention volume tracks real project events.", scoreText(score)),
		Findings: []string{"No coordinated influencer campaigns detected."},
		Sources:  []string{"Mention volume time series"},
	}
}

// Message time entropy

func messageTimeHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s community activity follows a scripted schedule", projectTitle(f)),
		Summary: fmt.Sprintf("Timing analysis scored %s. Messages in %s arrive at machine-regular intervals.",
			scoreText(score), communityText(f)),
		Sources: discordSource(f),
	}
	if e := ratio(f, "timingEntropy", ""); e != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("Posting time entropy is %s, far below human baselines.", e))
	}
	n.Findings = append(n.Findings, "Activity does not follow the day/night cycle of any timezone.")
	n.RedFlags = []string{"Scheduled bot traffic simulates an active community."}
	return n
}

func messageTimeMedium(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s community timing is partly regular", projectTitle(f)),
		Summary:  fmt.Sprintf("Timing analysis scored %s. Some channels show clustered posting.", scoreText(score)),
		Findings: []string{fmt.Sprintf("Posting time entropy: %s.", ratio(f, "timingEntropy", "moderate"))},
		Sources:  discordSource(f),
	}
}

func messageTimeLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s community timing looks human", projectTitle(f)),
		Summary:  fmt.Sprintf("Timing analysis scored %s. Activity in %s varies naturally across the day.", scoreText(score), communityText(f)),
		Findings: []string{"Posting patterns match expected timezone distribution."},
		Sources:  discordSource(f),
	}
}

// Account age entropy

func accountAgeHigh(score float64, f Facts) Narrative {
	n := Narrative{
		Headline: fmt.Sprintf("%s community is built on fresh accounts", projectTitle(f)),
		Summary: fmt.Sprintf("Account age analysis scored %s. A large share of members were created in the same short window.",
			scoreText(score)),
		Sources: append(discordSource(f), twitterSource(f)...),
	}
	if share := percent(f, "newAccountShare", ""); share != "" {
		n.Findings = append(n.Findings, fmt.Sprintf("%s of active accounts are less than 30 days old.", share))
	}
	n.Findings = append(n.Findings, "Account creation dates cluster tightly around launch.")
	n.RedFlags = []string{"**Sybil accounts** manufacture the appearance of adoption."}
	return n
}

func accountAgeMedium(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s community has many new accounts", projectTitle(f)),
		Summary:  fmt.Sprintf("Account age analysis scored %s. New accounts are over-represented.", scoreText(score)),
		Findings: []string{fmt.Sprintf("New account share: %s.", percent(f, "newAccountShare", "elevated"))},
		Sources:  discordSource(f),
	}
}

func accountAgeLow(score float64, f Facts) Narrative {
	return Narrative{
		Headline: fmt.Sprintf("%s community has a natural age spread", projectTitle(f)),
		Summary:  fmt.Sprintf("Account age analysis scored %s. Member accounts span many years.", scoreText(score)),
		Findings: []string{"No clustering of account creation dates."},
		Sources:  discordSource(f),
	}
}

func trimAt(h string) string {
	if len(h) > 0 && h[0] == '@' {
		return h[1:]
	}
	return h
}

func handleTitle(f Facts) string {
	if f.TwitterHandle != "" {
		return handleText(f)
	}
	return projectTitle(f)
}
