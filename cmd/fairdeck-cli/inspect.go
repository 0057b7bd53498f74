package fairdeck

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/fairdeck/fairdeck/ceremony"
	"github.com/fairdeck/fairdeck/ceremony/boltdb"
)

// openArchive opens the bolt archive under the --db folder without taking the
// write lock, so a running daemon keeps serving while we read.
func openArchive(c *cli.Context) (ceremony.Store, error) {
	folder := c.String(dbFlag.Name)
	store, err := boltdb.NewBoltStore(c.Context, cliLogger(c), folder, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("fairdeck: opening archive in %q: %w", folder, err)
	}
	return store, nil
}

func showTranscriptCmd(c *cli.Context) error {
	if !c.Args().Present() {
		return errors.New("missing game id in argument")
	}
	store, err := openArchive(c)
	if err != nil {
		return err
	}
	defer store.Close(c.Context)

	tr, err := store.Get(c.Context, c.Args().First())
	if errors.Is(err, ceremony.ErrNoTranscript) {
		return fmt.Errorf("fairdeck: no transcript archived for game %q", c.Args().First())
	}
	if err != nil {
		return err
	}
	if !tr.Verify() {
		return cli.Exit(fmt.Sprintf("fairdeck: transcript for game %q does not match its hash", tr.GameID), 2)
	}

	switch {
	case c.Bool(hashOnlyFlag.Name):
		fmt.Fprintf(output, "%s\n", tr.TranscriptHash)
	case c.Bool(jsonFlag.Name):
		buf, err := tr.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "%s\n", buf)
	default:
		renderTranscript(tr)
	}
	return nil
}

func listTranscriptsCmd(c *cli.Context) error {
	store, err := openArchive(c)
	if err != nil {
		return err
	}
	defer store.Close(c.Context)

	return store.Cursor(c.Context, func(ctx context.Context, cur ceremony.Cursor) error {
		for tr, err := cur.First(ctx); ; tr, err = cur.Next(ctx) {
			if errors.Is(err, ceremony.ErrNoTranscript) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(output, "%s\t%d players\t%s\t%s\n",
				tr.GameID, len(tr.PlayerReveals), tr.Timestamp, tr.TranscriptHash)
		}
	})
}

func backupDBCmd(c *cli.Context) error {
	if !c.Args().Present() {
		return errors.New("missing backup file in argument")
	}
	store, err := openArchive(c)
	if err != nil {
		return err
	}
	defer store.Close(c.Context)

	fd, err := os.Create(c.Args().First())
	if err != nil {
		return fmt.Errorf("fairdeck: creating backup file: %w", err)
	}
	defer fd.Close()
	if err := store.SaveTo(c.Context, fd); err != nil {
		return fmt.Errorf("fairdeck: backing up archive: %w", err)
	}
	count, err := store.Len(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "fairdeck: backed up %d transcripts to %s\n", count, c.Args().First())
	return nil
}
