package gates

// DefaultHardBlockTerms are rejected outright. Every entry names an
// unambiguous illegal or harmful request.
var DefaultHardBlockTerms = []string{
	// controlled substances
	"cocaine", "heroin", "methamphetamine", "crystal meth", "fentanyl",
	"crack cocaine", "mdma", "ecstasy pills", "sell drugs", "drug dealing",
	"drug trafficking", "drug mule",
	// weapons and explosives
	"pipe bomb", "make a bomb", "build a bomb", "make explosives", "buy explosives",
	"sell explosives", "ghost gun",
	"untraceable gun", "sell guns", "illegal firearms", "gun smuggling",
	// fraud and identity documents
	"fake id", "fake passport", "forged documents", "forge documents",
	"counterfeit money", "money laundering", "launder money", "identity theft",
	"stolen credit card", "stolen credit cards", "credit card fraud",
	// stalking and extortion
	"stalk my ex", "stalk someone", "spy on my ex", "track my ex", "blackmail",
	"extortion", "extort",
	// commercial sexual services
	"escort service", "prostitution", "sexual services", "happy ending massage",
	// illegal gambling operations
	"illegal gambling", "underground casino", "illegal casino", "bookmaking operation",
	// violence and animal cruelty
	"hitman", "hire a hitman", "plan a murder", "commit murder", "murder someone",
	"kidnap", "kidnapping", "beat someone up", "beat up someone",
	"dog fighting", "dogfighting", "cockfighting", "animal cruelty",
	// cybercrime
	"hack into someone's", "ddos attack on", "phishing campaign", "phishing site",
	"install malware", "write malware", "spread malware", "deploy ransomware",
	"steal passwords", "carding",
}

// DefaultSoftFlagTerms have legitimate uses and send the task to manual
// review instead of rejecting it.
var DefaultSoftFlagTerms = []string{
	"weapon", "weapons", "knife", "knives", "gun", "guns", "firearm", "firearms",
	"ammunition", "pepper spray",
	"drugs", "drug", "prescription", "medication", "cannabis", "marijuana",
	"alcohol", "vape",
	"gambling", "casino", "betting", "poker",
	"investigation", "investigate", "background check", "private investigator",
	"surveillance", "follow someone", "lockpick", "lock picking",
	"massage", "dating", "adult",
	"cash only", "bitcoin", "crypto", "gift cards",
	"poison", "hunting",
	"malware", "ransomware", "phishing", "ddos", "hack into", "explosives",
	"murder", "stalk", "stalking", "beat up",
}
