package verify

import (
	"github.com/fairdeck/fairdeck/ceremony"
	"github.com/fairdeck/fairdeck/deck"
)

// GameEndData is the end-of-game payload an auditor checks. Every field is
// optional; checks whose inputs are missing are skipped rather than failed.
// The shape mirrors the transcript wire form plus the claimed dealing
// order.
type GameEndData struct {
	GameID            string            `json:"gameId"`
	PlayerCommitments map[string]string `json:"playerCommitments"`
	PlayerReveals     map[string]string `json:"playerReveals"`
	Timestamp         string            `json:"timestamp"`
	FinalSeed         string            `json:"finalSeed"`
	DeckCommitment    string            `json:"deckCommitment"`
	Nonce             string            `json:"nonce"`
	OriginalDeck      deck.Deck         `json:"originalDeck"`
	ShuffledDeck      deck.Deck         `json:"shuffledDeck"`
	Permutation       []int             `json:"permutation"`
	DealingOrder      []string          `json:"dealingOrder,omitempty"`
}

// FromTranscript converts an archived transcript into the audit payload.
func FromTranscript(t *ceremony.Transcript) *GameEndData {
	return &GameEndData{
		GameID:            t.GameID,
		PlayerCommitments: t.PlayerCommitments,
		PlayerReveals:     t.PlayerReveals,
		Timestamp:         t.Timestamp,
		FinalSeed:         t.FinalSeed,
		DeckCommitment:    t.DeckCommitment,
		Nonce:             t.Nonce,
		OriginalDeck:      t.OriginalDeck,
		ShuffledDeck:      t.ShuffledDeck,
		Permutation:       t.Permutation,
	}
}

// GameReport is the outcome of a whole-game audit. Overall is true only if
// every check that actually ran passed; skipped checks are excluded rather
// than counted as failures. Alerts collects the security-alert subset.
type GameReport struct {
	GameID  string         `json:"gameId"`
	Overall bool           `json:"overall"`
	Checks  []CheckResult  `json:"checks"`
	Players []PlayerResult `json:"players,omitempty"`
	Alerts  []CheckResult  `json:"alerts,omitempty"`
}

// VerifyGame runs every applicable check against one end-of-game payload.
// Values recorded live on the verifier take precedence over the payload's
// claims; the payload only fills in what was never recorded.
func (v *Verifier) VerifyGame(data *GameEndData) *GameReport {
	report := &GameReport{GameID: data.GameID, Overall: true}
	add := func(res CheckResult) {
		report.Checks = append(report.Checks, res)
		if res.Skipped {
			return
		}
		if !res.Valid {
			report.Overall = false
		}
		if res.Alert {
			report.Alerts = append(report.Alerts, res)
		}
	}

	for playerID, hash := range data.PlayerCommitments {
		if _, ok := v.playerCommitments[playerID]; !ok {
			v.playerCommitments[playerID] = hash
		}
	}
	for playerID, seed := range data.PlayerReveals {
		if _, ok := v.playerReveals[playerID]; !ok {
			v.playerReveals[playerID] = seed
		}
	}
	if v.deckCommitment == "" {
		v.deckCommitment = data.DeckCommitment
	}

	var cr *CommitmentReport
	if len(v.playerCommitments) == 0 && len(v.playerReveals) == 0 {
		add(v.skip(CheckPlayerCommitments, "no commitments or reveals available"))
	} else {
		cr = v.VerifyPlayerCommitments()
		report.Players = cr.Players
		res := CheckResult{Check: CheckPlayerCommitments, Valid: cr.Overall}
		if cr.Err != nil {
			res.Detail = cr.Err.Error()
		}
		add(res)
	}

	if data.Timestamp == "" {
		add(v.skip(CheckTimestampCommitment, "no timestamp in payload"))
	} else {
		add(v.VerifyTimestampCommitment(data.Timestamp, ""))
	}

	if data.FinalSeed == "" || data.Timestamp == "" {
		add(v.skip(CheckFinalSeed, "no final seed or timestamp in payload"))
	} else {
		// cr is nil only when nothing was committed or revealed, and then
		// the no-reveals guard skips the seed check before reading it.
		add(v.verifyFinalSeedWith(cr, data.FinalSeed, data.Timestamp))
	}

	if len(data.ShuffledDeck) == 0 || data.Nonce == "" {
		add(v.skip(CheckDeckCommitment, "no revealed deck or nonce in payload"))
	} else {
		add(v.VerifyDeckCommitment(data.ShuffledDeck, data.Nonce, data.DeckCommitment))
	}

	if len(data.OriginalDeck) == 0 || len(data.ShuffledDeck) == 0 || data.FinalSeed == "" {
		add(v.skip(CheckShuffle, "shuffle inputs incomplete"))
	} else {
		add(v.VerifyShuffle(data.OriginalDeck, data.ShuffledDeck, data.FinalSeed))
	}

	if len(data.DealingOrder) == 0 || data.FinalSeed == "" {
		add(v.skip(CheckDealingOrder, "no dealing order claimed"))
	} else {
		playerIDs := make([]string, 0, len(v.playerReveals))
		for playerID := range v.playerReveals {
			playerIDs = append(playerIDs, playerID)
		}
		add(v.VerifyDealingOrder(data.FinalSeed, playerIDs, data.DealingOrder))
	}

	v.log.Infow("game audit finished",
		"game", data.GameID,
		"overall", report.Overall,
		"alerts", len(report.Alerts))
	return report
}
