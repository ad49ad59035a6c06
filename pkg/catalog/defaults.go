package catalog

// Metric keys, in canonical order.
const (
	ContaminatedNetwork    = "contaminatedNetwork"
	TeamIdentity           = "teamIdentity"
	TeamCompetence         = "teamCompetence"
	Tokenomics             = "tokenomics"
	TweetFocus             = "tweetFocus"
	MercenaryKeywords      = "mercenaryKeywords"
	GithubAuthenticity     = "githubAuthenticity"
	EngagementAuthenticity = "engagementAuthenticity"
	FounderDistraction     = "founderDistraction"
	ArtificialHype         = "artificialHype"
	MessageTimeEntropy     = "messageTimeEntropy"
	AccountAgeEntropy      = "accountAgeEntropy"
	BusFactor              = "busFactor"
)

// DefaultDefinitions returns the canonical 13-metric weight table.
func DefaultDefinitions() []Definition {
	b := DefaultBands()
	return []Definition{
		{Key: ContaminatedNetwork, DisplayName: "Contaminated Network", Weight: 19, Bands: b,
			Description: "Ties between the team or backers and previously failed, abandoned or fraudulent projects."},
		{Key: TeamIdentity, DisplayName: "Team Identity", Weight: 13, Bands: b,
			Description: "How verifiable the identities of the founders and core contributors are."},
		{Key: TeamCompetence, DisplayName: "Team Competence", Weight: 11, Bands: b,
			Description: "Evidence that the team can ship what the project claims."},
		{Key: Tokenomics, DisplayName: "Tokenomics", Weight: 7, Bands: b,
			Description: "Supply concentration, unlock schedules and contract-level controls."},
		{Key: TweetFocus, DisplayName: "Tweet Focus", Weight: 7, Bands: b,
			Description: "Share of official communication spent on price and hype instead of product."},
		{Key: MercenaryKeywords, DisplayName: "Mercenary Keywords", Weight: 7, Bands: b,
			Description: "Frequency of pump, giveaway and guaranteed-return vocabulary."},
		{Key: GithubAuthenticity, DisplayName: "GitHub Authenticity", Weight: 7, Bands: b,
			Description: "Whether repository history reflects genuine, original development."},
		{Key: EngagementAuthenticity, DisplayName: "Engagement Authenticity", Weight: 6, Bands: b,
			Description: "Ratio of organic to botted or purchased engagement."},
		{Key: FounderDistraction, DisplayName: "Founder Distraction", Weight: 6, Bands: b,
			Description: "How many concurrent ventures the founders are promoting."},
		{Key: ArtificialHype, DisplayName: "Artificial Hype", Weight: 5, Bands: b,
			Description: "Coordinated promotion bursts and paid influencer campaigns."},
		{Key: MessageTimeEntropy, DisplayName: "Message Time Entropy", Weight: 5, Bands: b,
			Description: "Regularity of community message timestamps, a marker of scripted activity."},
		{Key: AccountAgeEntropy, DisplayName: "Account Age Entropy", Weight: 5, Bands: b,
			Description: "Clustering of follower and member account creation dates."},
		{Key: BusFactor, DisplayName: "Bus Factor", Weight: 2, Bands: b,
			Description: "Dependence of the codebase on a single contributor."},
	}
}

// Default returns the canonical catalog. It panics if the built-in table is
// malformed, which is a programming error caught by tests.
func Default() *Catalog {
	c, err := New(DefaultDefinitions()...)
	if err != nil {
		panic("catalog: invalid default definitions: " + err.Error())
	}
	if err := c.ValidateWeights(); err != nil {
		panic("catalog: " + err.Error())
	}
	return c
}
