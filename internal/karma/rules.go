package karma

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
)

// Signals records which vocabulary groups appear in what the user said.
type Signals struct {
	GoodDeeds  bool
	Repentance bool
	Sin        bool
	Redemption bool
}

// Rule maps a signal combination to a score range. Rules are evaluated in
// order and the first match wins.
type Rule struct {
	Name      string
	Match     func(Signals) bool
	Min, Max  int
	Summary   string
	Reasoning string
}

// vocabulary holds stems, matched anywhere in the text so Russian endings
// still hit, and short English words, matched only as whole words so "hit"
// does not fire on "white".
type vocabulary struct {
	stems []string
	words []string
}

var (
	goodDeedWords = vocabulary{
		stems: []string{"помог", "пожертвовал", "отдал", "накормил", "приютил", "спас", "простил обидчика", "искупил",
			"helped", "donated", "volunteered", "sheltered", "saved", "forgave"},
		words: []string{"fed"},
	}
	repentanceWords = vocabulary{
		stems: []string{"раскаяние", "простите", "сожалею", "виноват", "прощения", "каюсь",
			"sorry", "repent", "regret", "forgive me", "ashamed", "guilty"},
	}
	sinWords = vocabulary{
		stems: []string{"украл", "обманул", "предал", "ударил", "избил", "изменил", "соврал", "обидел сильно",
			"stole", "lied", "cheated", "betrayed"},
		words: []string{"hit", "beat", "hurt"},
	}
	redemptionWords = vocabulary{
		stems: []string{"исправил", "попросил прощения", "вернул", "загладил вину",
			"made amends", "apologized", "apologised", "gave it back", "returned it", "asked for forgiveness"},
	}
)

// Rules is the fallback scoring table.
var Rules = []Rule{
	{
		Name:      "good_deeds",
		Match:     func(s Signals) bool { return s.GoodDeeds || s.Redemption },
		Min:       3,
		Max:       6,
		Summary:   "Благие дела и добрые поступки",
		Reasoning: "Ваши добрые дела приносят свет в мир. Господь видит вашу искренность и щедрость сердца.",
	},
	{
		Name:      "unrepented_sin",
		Match:     func(s Signals) bool { return s.Sin && !s.Repentance },
		Min:       -8,
		Max:       -4,
		Summary:   "Грех требует осознания",
		Reasoning: "Содеянное требует искреннего раскаяния и стремления к исправлению. Обратитесь к Богу с чистым сердцем.",
	},
	{
		Name:      "repented_sin",
		Match:     func(s Signals) bool { return s.Sin && s.Repentance },
		Summary:   "Раскаяние принято",
		Reasoning: "Ваше раскаяние искренне. Теперь искупите вину добрыми делами, и Господь простит вас.",
	},
	{
		Name:      "repentance",
		Match:     func(s Signals) bool { return s.Repentance },
		Summary:   "Исповедь с раскаянием",
		Reasoning: "Раскаяние - первый шаг. Теперь идите и творите добро, чтобы искупить содеянное.",
	},
	{
		Name:      "conversation",
		Match:     func(Signals) bool { return true },
		Summary:   "Духовная беседа",
		Reasoning: "Размышления и вопросы о жизни - важная часть духовного пути. Продолжайте искать истину.",
	},
}

// Detect scans the lower-cased user turns of msgs.
func Detect(msgs []models.Message) Signals {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role != models.RoleUserMessage {
			continue
		}
		b.WriteString(strings.ToLower(m.Content))
		b.WriteByte(' ')
	}
	text := b.String()
	tokens := tokenize(text)

	return Signals{
		GoodDeeds:  goodDeedWords.in(text, tokens),
		Repentance: repentanceWords.in(text, tokens),
		Sin:        sinWords.in(text, tokens),
		Redemption: redemptionWords.in(text, tokens),
	}
}

// Fallback scores msgs with the rule table. It never touches the network and
// returns the same result for the same transcript.
func Fallback(msgs []models.Message) Result {
	signals := Detect(msgs)
	rule := Rules[len(Rules)-1]
	for _, r := range Rules {
		if r.Match(signals) {
			rule = r
			break
		}
	}

	return Result{
		KarmaChange:   Clamp(pick(models.Transcript(msgs), rule.Min, rule.Max)),
		Summary:       rule.Summary,
		Reasoning:     rule.Reasoning,
		Source:        SourceFallback,
		Rule:          rule.Name,
		RubricVersion: RubricVersion,
	}
}

// pick returns a value in [lo, hi] seeded by the transcript.
func pick(transcript string, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	h := fnv.New64a()
	h.Write([]byte(transcript))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return lo + r.IntN(hi-lo+1)
}

func (v vocabulary) in(text string, tokens map[string]struct{}) bool {
	for _, w := range v.stems {
		if strings.Contains(text, w) {
			return true
		}
	}
	for _, w := range v.words {
		if _, ok := tokens[w]; ok {
			return true
		}
	}
	return false
}

// tokenize splits text into words on anything that is not a letter, digit or
// apostrophe.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
