package rule

import "regexp"

// entityPattern recognizes one entity shape in free text and the kind it
// implies. Grounded on the category structure of
// original_source/src/core/rpg_text_processor.py's rpg_entity_patterns,
// re-expressed as an English taxonomy rather than a port of the
// original's Chinese-language regexes, per spec §1's explicit non-goal
// on exact regex replication.
type entityPattern struct {
	re   *regexp.Regexp
	kind string
}

var entityPatterns = []entityPattern{
	// "Kael the Warrior", "Mira the Wanderer"
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]{1,30}) the ([A-Z][a-zA-Z]{2,30})\b`), kind: "character"},
	// "+2 Flaming Sword", "a +1 longsword"
	{re: regexp.MustCompile(`\+(\d+)\s+([A-Za-z' ]{0,30}?(?:sword|blade|axe|bow|staff|dagger|hammer|mace|shield))\b`), kind: "item"},
	// "a healing potion", "three mana elixirs"
	{re: regexp.MustCompile(`\b((?:healing|mana|stamina|antidote|strength) (?:potion|elixir|draught))\b`), kind: "item"},
	// "arrived at the Ember Hollow", "entered Greywatch"
	{re: regexp.MustCompile(`\b(?:arrived at|entered|traveled to|returned to) (?:the )?([A-Z][a-zA-Z' ]{1,40})\b`), kind: "location"},
	// "the Silver Hand Guild", "Ashen Order"
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z' ]{1,30} (?:Guild|Order|Brotherhood|Clan|Company|Covenant))\b`), kind: "organization"},
}

// numericDeltaPattern matches "<attribute> <verb> by <amount>" phrasing,
// e.g. "health drops by 15", "experience gains by 200".
type numericDeltaPattern struct {
	re        *regexp.Regexp
	attribute string
	sign      float64
}

var numericDeltaPatterns = []numericDeltaPattern{
	{re: regexp.MustCompile(`(?i)\b(health|hp)\b\s+(?:drops?|falls?|decreases?)\s+by\s+(\d+)`), attribute: "health", sign: -1},
	{re: regexp.MustCompile(`(?i)\b(health|hp)\b\s+(?:rises?|heals?|increases?|gains?)\s+by\s+(\d+)`), attribute: "health", sign: 1},
	{re: regexp.MustCompile(`(?i)\b(mana|mp)\b\s+(?:drops?|decreases?)\s+by\s+(\d+)`), attribute: "mana", sign: -1},
	{re: regexp.MustCompile(`(?i)\b(mana|mp)\b\s+(?:rises?|increases?|gains?)\s+by\s+(\d+)`), attribute: "mana", sign: 1},
	{re: regexp.MustCompile(`(?i)\battack\b\s+(?:increases?|gains?|rises?)\s+by\s+(\d+)`), attribute: "attack", sign: 1},
	{re: regexp.MustCompile(`(?i)\bdefense\b\s+(?:increases?|gains?|rises?)\s+by\s+(\d+)`), attribute: "defense", sign: 1},
	{re: regexp.MustCompile(`(?i)\b(?:experience|exp)\b\s+(?:gains?|increases?)\s+by\s+(\d+)`), attribute: "experience", sign: 1},
	{re: regexp.MustCompile(`(?i)\blevel\b\s+(?:up|increases?|rises?)\s+(?:by\s+)?(\d+)?`), attribute: "level", sign: 1},
}

// relationPattern captures "<subject> <verb phrase> <object>" and emits
// a labeled edge subject -> object.
type relationPattern struct {
	re    *regexp.Regexp
	label string
}

var relationPatterns = []relationPattern{
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) joins (?:the )?([A-Z][a-zA-Z' ]+)`), label: "member_of"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) leads (?:the )?([A-Z][a-zA-Z' ]+)`), label: "leader_of"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) (?:attacks|hates|is hostile to) ([A-Z][a-zA-Z'-]+)`), label: "hostile_to"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) (?:allies with|befriends) ([A-Z][a-zA-Z'-]+)`), label: "allied_with"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) respects ([A-Z][a-zA-Z'-]+)`), label: "respects"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) trades with ([A-Z][a-zA-Z'-]+)`), label: "trades_with"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) (?:equips|wields|wears) (?:the |a |an )?([A-Za-z' +]{2,40})`), label: "equipped_with"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) (?:arrives at|is in) (?:the )?([A-Z][a-zA-Z' ]+)`), label: "located_in"},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) guards (?:the )?([A-Z][a-zA-Z' ]+)`), label: "guards"},
}

// deletionPattern recognizes a deletion event and how to dispatch it.
type deletionEventKind string

const (
	deletionCharacterDeath     deletionEventKind = "character_death"
	deletionItemLost           deletionEventKind = "item_lost"
	deletionItemStolen         deletionEventKind = "item_stolen"
	deletionRelationshipBroken deletionEventKind = "relationship_broken"
	deletionLeftOrganization   deletionEventKind = "left_organization"
	deletionLeftLocation       deletionEventKind = "left_location"
)

type deletionPattern struct {
	re   *regexp.Regexp
	kind deletionEventKind
}

var deletionPatterns = []deletionPattern{
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) (?:dies|has died|is killed|was slain)\b`), kind: deletionCharacterDeath},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) steals (?:the |a |an )?([A-Za-z' +]{2,40}) from ([A-Z][a-zA-Z'-]+)`), kind: deletionItemStolen},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) loses (?:the |a |an )?([A-Za-z' +]{2,40})\b`), kind: deletionItemLost},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) (?:breaks up with|betrays|no longer trusts) ([A-Z][a-zA-Z'-]+)`), kind: deletionRelationshipBroken},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) leaves (?:the )?([A-Z][a-zA-Z' ]+ (?:Guild|Order|Brotherhood|Clan|Company|Covenant))\b`), kind: deletionLeftOrganization},
	{re: regexp.MustCompile(`\b([A-Z][a-zA-Z'-]+) leaves (?:the )?([A-Z][a-zA-Z' ]{1,40})\b`), kind: deletionLeftLocation},
}
