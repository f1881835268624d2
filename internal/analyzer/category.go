package analyzer

import (
	"regexp"
	"strings"
)

// Category is a coarse market topic.
type Category string

const (
	CategorySports        Category = "sports"
	CategoryPolitics      Category = "politics"
	CategoryCrypto        Category = "crypto"
	CategoryEconomics     Category = "economics"
	CategoryEntertainment Category = "entertainment"
	CategoryScienceTech   Category = "science_tech"
	CategoryWeather       Category = "weather"
	CategoryOther         Category = "other"
)

// CategoryRule maps a set of title patterns to a category.
type CategoryRule struct {
	Category Category
	Patterns []string

	compiled []*regexp.Regexp
}

// CategoryRules is evaluated top to bottom; the first rule with a matching
// pattern wins and unmatched titles fall through to CategoryOther.
var CategoryRules = []CategoryRule{
	{
		Category: CategorySports,
		Patterns: []string{
			// matchups and bet types
			`\bvs\.?\s`, `\bvs\b`,
			`spread`, `moneyline`, `over/under`, `\bo/u\b`, `total points`, `total goals`,
			// leagues and events
			`\bnfl\b`, `\bnba\b`, `\bmlb\b`, `\bnhl\b`, `\bmls\b`,
			`\bncaa\b`, `college`, `premier league`, `la liga`, `serie a`,
			`bundesliga`, `ligue 1`, `champions league`, `europa league`,
			`\bufc\b`, `\bwwe\b`, `boxing`, `tennis`, `golf`, `super bowl`,
			`will .+ win on \d{4}`, `will .+ win against`,
			`will .+ win .+ \d{4}`, `will .+ beat`,
			// teams
			`man city`, `man utd`, `liverpool`,
			`villarreal`, `atletico`, `barcelona`, `real madrid`,
			`lakers`, `celtics`, `warriors`, `yankees`, `dodgers`,
			`seahawks`, `packers`, `patriots`, `bears`, `rams`,
			`chiefs`, `eagles`, `cowboys`, `49ers`, `ravens`,
			`bills`, `dolphins`, `steelers`, `bengals`, `broncos`,
			`knicks`, `nets`, `rockets`, `nuggets`, `heat`,
			`bucks`, `suns`, `clippers`, `spurs`, `mavericks`,
			`oilers`, `penguins`, `capitals`, `blackhawks`, `canadiens`,
			`panthers`, `flames`, `sharks`, `stars`, `wild`,
			`magic`, `raptors`, `pelicans`, `wizards`, `pistons`,
			`timberwolves`, `pacers`, `cavaliers`, `grizzlies`,
			// esports
			`esport`, `\blol\b`, `league of legends`, `\bdota\b`, `\bcs2?\b`,
		},
	},
	{
		Category: CategoryPolitics,
		Patterns: []string{
			`president`, `election`, `trump`, `biden`, `vote`, `congress`,
			`senate`, `governor`, `democrat`, `republican`, `poll`,
			`primary`, `nominee`, `cabinet`, `secretary of`,
		},
	},
	{
		Category: CategoryCrypto,
		Patterns: []string{
			`\bbitcoin\b`, `\beth\b`, `\bethereum\b`, `crypto`, `\bbtc\b`,
			`solana`, `\bsol\b`, `token`, `defi`, `nft`,
		},
	},
	{
		Category: CategoryEconomics,
		Patterns: []string{
			`\bfed\b`, `federal reserve`, `interest rate`, `inflation`,
			`\bgdp\b`, `unemployment`, `cpi`, `treasury`, `tariff`,
		},
	},
	{
		Category: CategoryEntertainment,
		Patterns: []string{
			`oscar`, `grammy`, `super bowl halftime`, `movie`, `box office`,
			`album`, `streaming`, `netflix`, `disney`,
		},
	},
	{
		Category: CategoryScienceTech,
		Patterns: []string{
			`spacex`, `nasa`, `\bai\b`, `artificial intelligence`, `climate`,
			`vaccine`, `fda`, `drug approval`,
		},
	},
	{
		Category: CategoryWeather,
		Patterns: []string{
			`hurricane`, `temperature`, `weather`, `snowfall`, `rainfall`,
		},
	},
}

// DirectionRules is the coarser table used for per-category side bias.
var DirectionRules = []CategoryRule{
	{Category: CategorySports, Patterns: []string{`\bvs\.?\s|\bvs\b|spread|moneyline|nfl|nba|mlb|nhl|ufc`}},
	{Category: CategoryPolitics, Patterns: []string{`president|election|trump|biden|congress|senate|democrat|republican`}},
	{Category: CategoryCrypto, Patterns: []string{`bitcoin|eth|ethereum|crypto|btc|solana|token`}},
	{Category: CategoryEconomics, Patterns: []string{`fed\b|inflation|gdp|tariff|interest rate`}},
}

// Categorizer assigns exactly one category to a title.
type Categorizer struct {
	rules []CategoryRule
}

// NewCategorizer compiles rules in order. Patterns that fail to compile are
// skipped so a bad entry cannot disable the whole table.
func NewCategorizer(rules []CategoryRule) *Categorizer {
	out := make([]CategoryRule, 0, len(rules))
	for _, r := range rules {
		r.compiled = make([]*regexp.Regexp, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				continue
			}
			r.compiled = append(r.compiled, re)
		}
		out = append(out, r)
	}
	return &Categorizer{rules: out}
}

// Categorize returns the first matching category, or CategoryOther.
func (c *Categorizer) Categorize(title string) Category {
	t := strings.ToLower(title)
	for _, r := range c.rules {
		for _, re := range r.compiled {
			if re.MatchString(t) {
				return r.Category
			}
		}
	}
	return CategoryOther
}

// Order returns the categories in table order followed by CategoryOther.
func (c *Categorizer) Order() []Category {
	out := make([]Category, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return append(out, CategoryOther)
}

var (
	defaultCategorizer   = NewCategorizer(CategoryRules)
	directionCategorizer = NewCategorizer(DirectionRules)
)

// Categorize classifies a title with the default table.
func Categorize(title string) Category {
	return defaultCategorizer.Categorize(title)
}
