package fairdeck

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fairdeck/fairdeck/ceremony"
	"github.com/fairdeck/fairdeck/metrics"
	"github.com/fairdeck/fairdeck/metrics/pprof"
	"github.com/fairdeck/fairdeck/verify"
)

// auditCmd replays every fairness check an archived transcript allows. The
// transcript is the only input: nothing the server claims is trusted until it
// has been recomputed locally.
func auditCmd(c *cli.Context) error {
	if !c.Args().Present() {
		return errors.New("missing transcript file in argument")
	}
	if c.IsSet(metricsFlag.Name) {
		_ = metrics.Start(c.String(metricsFlag.Name), pprof.WithProfile())
	}
	buf, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("fairdeck: reading transcript: %w", err)
	}
	tr := new(ceremony.Transcript)
	if err := tr.Unmarshal(buf); err != nil {
		return fmt.Errorf("fairdeck: malformed transcript: %w", err)
	}

	// The seal over the whole record comes first. A broken seal means the
	// file was edited after archival, so everything below it is suspect.
	sealOK := tr.Verify()

	v := verify.NewVerifier(nil, cliLogger(c))
	report := v.VerifyGame(verify.FromTranscript(tr))
	renderAuditReport(tr, sealOK, report)

	if c.IsSet(exportLogFlag.Name) {
		auditLog, err := v.ExportLog()
		if err != nil {
			return fmt.Errorf("fairdeck: exporting audit log: %w", err)
		}
		if err := os.WriteFile(c.String(exportLogFlag.Name), auditLog, 0o600); err != nil {
			return fmt.Errorf("fairdeck: writing audit log: %w", err)
		}
	}

	switch {
	case !sealOK || len(report.Alerts) > 0:
		return cli.Exit("fairdeck: audit raised security alerts", 2)
	case !report.Overall:
		return cli.Exit("fairdeck: audit failed", 1)
	}
	return nil
}
