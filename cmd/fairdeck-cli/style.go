package fairdeck

import (
	"sort"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/fairdeck/fairdeck/ceremony"
	"github.com/fairdeck/fairdeck/verify"
)

// renderAuditReport prints the outcome of a full transcript audit: the seal
// over the record, then one row per fairness check and one per player.
func renderAuditReport(tr *ceremony.Transcript, sealOK bool, report *verify.GameReport) {
	rows := pterm.TableData{{"Check", "Result", "Detail"}}
	rows = append(rows, []string{verify.CheckTranscriptHash, renderSeal(sealOK), tr.TranscriptHash})
	for _, res := range report.Checks {
		rows = append(rows, []string{res.Check, renderOutcome(res), res.Detail})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	if len(report.Players) > 0 {
		pterm.Println()
		playerRows := pterm.TableData{{"Player", "Result", "Reason"}}
		for _, p := range report.Players {
			outcome := pterm.LightGreen("ok")
			if !p.Valid {
				outcome = pterm.LightRed("failed")
			}
			playerRows = append(playerRows, []string{p.PlayerID, outcome, p.Reason})
		}
		pterm.DefaultTable.WithHasHeader().WithData(playerRows).Render()
	}

	pterm.Println()
	switch {
	case !sealOK:
		pterm.Error.Printfln("game %s: transcript does not match its own hash, record was edited after archival", report.GameID)
	case len(report.Alerts) > 0:
		pterm.Error.Printfln("game %s: %d security alert(s) raised", report.GameID, len(report.Alerts))
	case !report.Overall:
		pterm.Error.Printfln("game %s: at least one fairness check failed", report.GameID)
	default:
		pterm.Success.Printfln("game %s: every attempted check passed", report.GameID)
	}
}

func renderSeal(sealOK bool) string {
	if sealOK {
		return pterm.LightGreen("ok")
	}
	return pterm.LightRed("ALERT")
}

func renderOutcome(res verify.CheckResult) string {
	switch {
	case res.Skipped:
		return pterm.Cyan("skipped")
	case res.Alert:
		return pterm.LightRed("ALERT")
	case !res.Valid:
		return pterm.LightRed("failed")
	default:
		return pterm.LightGreen("ok")
	}
}

// renderTranscript prints a one-screen summary of an archived transcript.
func renderTranscript(tr *ceremony.Transcript) {
	players := make([]string, 0, len(tr.PlayerCommitments))
	for playerID := range tr.PlayerCommitments {
		players = append(players, playerID)
	}
	sort.Strings(players)

	rows := pterm.TableData{
		{"Game", tr.GameID},
		{"Players", strconv.Itoa(len(players))},
		{"Timestamp (ms)", tr.Timestamp},
		{"Final seed", tr.FinalSeed},
		{"Deck commitment", tr.DeckCommitment},
		{"Transcript hash", tr.TranscriptHash},
	}
	pterm.DefaultTable.WithData(rows).Render()

	pterm.Println()
	playerRows := pterm.TableData{{"Player", "Commitment", "Reveal"}}
	for _, playerID := range players {
		playerRows = append(playerRows, []string{
			playerID, tr.PlayerCommitments[playerID], tr.PlayerReveals[playerID],
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(playerRows).Render()
}
