package karma

import (
	"fmt"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
)

const systemPrompt = `You are a spiritual analyst grounded in Christian teaching and Holy Scripture. You answer with JSON only.`

const rubric = `Analyze this confession and decide how the person's karma changes.

Confession:
%s

KARMA RULES

Positive (+1 to +10), only for REAL good deeds:
- helping people, charity, forgiving those who hurt them
- active atonement through concrete actions: +3 to +7
- completed good deeds: +2 to +10, larger for more significant acts

Zero (0):
- plain repentance or admitting a sin WITHOUT any remedial action
- questions, spiritual reflection, everyday conversation without concrete deeds
- the person repents but has not yet made amends

Negative (-1 to -10), only when the person confessed harmful acts:
- betrayal, deception, violence, theft; the graver the sin the lower the score (-2 to -10)
- denying guilt or justifying the sin: -3 to -5

Examples:
"I stole money from a friend" -> -5 to -8
"I repent that I deceived my wife" -> 0
"I helped a homeless man and fed him" -> +5 to +7
"I asked forgiveness from the person I hurt and made it right" -> +4 to +6
"How do I deal with anger?" -> 0
"I donated money to a shelter" -> +6 to +8

Be strict and honest. Karma changes only for REAL actions, not words or intentions.

Write summary and reasoning in %s.

Return STRICTLY this JSON and nothing else:
{"karmaChange": <integer from -10 to 10>, "summary": "<1-2 sentence spiritual summary>", "reasoning": "<2-3 sentences explaining the score by Christian principles>"}`

func buildPrompt(msgs []models.Message, language string) string {
	return fmt.Sprintf(rubric, models.Transcript(msgs), language)
}
