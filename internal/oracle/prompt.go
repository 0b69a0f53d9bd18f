package oracle

import (
	"fmt"
	"strings"

	"trustevo/internal/model"
)

// Wire labels used when talking to a language model. The engine's action
// names stay internal; prompts and replies speak Trust/Cheat.
const (
	wireTrust = "Trust"
	wireCheat = "Cheat"
)

func wireLabel(a model.Action) string {
	if a == model.ActionDefect {
		return wireCheat
	}
	return wireTrust
}

func actionFromWire(label string) (model.Action, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "TRUST":
		return model.ActionCooperate, nil
	case "CHEAT":
		return model.ActionDefect, nil
	default:
		return "", fmt.Errorf("unknown action label %q", label)
	}
}

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

// BuildPrompt renders the decision prompt for a language-model provider:
// rules, the payoff matrix in force, prior outcomes, and the required reply
// format.
func BuildPrompt(req DecisionRequest) string {
	var b strings.Builder

	b.WriteString("AI Agent: Game Theory Decision Prompt\n")
	b.WriteString("Objective: You are an AI agent participating in a two-player game. Your sole objective is to maximize your own payoff.\n\n")
	b.WriteString("Game Rules:\n\nThere are two players: 'AI Agent' (you) and 'Opponent.'\n")
	b.WriteString("Each player chooses one of two actions simultaneously: 'Trust' or 'Cheat.'\n\n")
	b.WriteString("The payoffs for each combination of actions are as follows (Your Payoff, Opponent's Payoff):\n")
	for _, own := range []model.Action{model.ActionCooperate, model.ActionDefect} {
		for _, opp := range []model.Action{model.ActionCooperate, model.ActionDefect} {
			mine, theirs := req.Payoffs.Lookup(own, opp)
			fmt.Fprintf(&b, "If you choose '%s' and Opponent chooses '%s': (%s,%s)\n",
				wireLabel(own), wireLabel(opp), signed(mine), signed(theirs))
		}
	}

	b.WriteString("\nMulti-Round Game Context:\nThis game will be played over multiple rounds. Before each new round, you will be provided with the outcomes of all previous rounds.\n\n")
	if len(req.Rounds) > 0 {
		b.WriteString("Previous Outcomes:\nPast game outcomes are listed in the format:\n")
		b.WriteString("[(Round N: Your_Action, Opponent_Action, Your_Payoff, Opponent_Payoff), ...]\n")
		entries := make([]string, 0, len(req.Rounds))
		for _, r := range req.Rounds {
			entries = append(entries, fmt.Sprintf("(Round %d: %s, %s, %d, %d)",
				r.Round, wireLabel(r.Own), wireLabel(r.Opponent), r.OwnPayoff, r.OpponentPayoff))
		}
		fmt.Fprintf(&b, "History: [%s]\n", strings.Join(entries, ", "))
	} else {
		b.WriteString("No previous rounds.\n")
	}

	b.WriteString("\nTask:\nAnalyze the payoff matrix and consider the history of previous outcomes to determine your optimal strategy for the current round. ")
	b.WriteString("Assuming the opponent is also a rational agent aiming to maximize their own payoff, what action should you choose in this game to maximize your own outcome?\n\n")
	b.WriteString("Your Response:\nReply strictly in the following JSON format (do not include any other text):\n")
	b.WriteString(`{"action": "Trust or Cheat", "reason": "5-7 word explanation"}` + "\n")
	return b.String()
}
