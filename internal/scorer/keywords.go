package scorer

// Keyword sets are matched as lowercase substrings.
var (
	decisionMakerKeywords = []string{
		"ceo", "cto", "cfo", "coo", "president", "founder", "co-founder",
		"director", "head of", "vp", "vice president", "chief", "owner",
		"general manager", "managing director", "executive director",
	}

	influencerKeywords = []string{
		"manager", "senior manager", "lead", "team lead", "principal",
		"senior", "architect", "specialist", "coordinator", "supervisor",
	}

	// Core verticals count as an exact industry match for any offer.
	coreVerticals = []string{
		"software", "saas", "technology", "tech", "it", "information technology",
		"software development", "cloud", "fintech", "edtech", "healthtech",
		"martech", "adtech", "proptech", "insurtech", "regtech",
	}

	adjacentVerticals = []string{
		"consulting", "marketing", "advertising", "digital marketing",
		"e-commerce", "retail", "financial services", "healthcare",
		"education", "media", "telecommunications", "professional services",
	}
)
