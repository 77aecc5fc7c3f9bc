package main

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/lumina"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/queue"
)

var sampleLines = []string{
	"Refunds are issued to the original payment method within five business days.",
	"Customers may return unopened items for a full refund within thirty days of delivery.",
	"Opened items can be exchanged but not refunded unless they arrived damaged.",
	"Shipping fees are not refundable except when the wrong item was sent.",
	"To start a return, open the order page and choose Request Return.",
	"Support is available by chat from 8am to 8pm on weekdays.",
	"Weekend requests are answered by email within one business day.",
	"Enterprise customers have a dedicated account manager and a private phone line.",
	"Outages are announced on the status page and by email to workspace admins.",
	"Credits for downtime are applied automatically to the next invoice.",
	"Passwords must contain at least twelve characters.",
	"Two-factor authentication is mandatory for administrator accounts.",
	"Sessions expire after eight hours of inactivity.",
	"Lost devices should be reported to the security team immediately.",
	"Access to production data requires an approved ticket.",
}

func seedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	source := linesFromSlice(sampleLines)
	if src := c.String("src"); src != "" {
		source, err = linesFromFile(src)
		if err != nil {
			return err
		}
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := seed(c.Context, db, c.String("org"), c.String("user"), source, c.Int("lines-per-doc"))
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d documents into %s\n", n, c.String("org"))
	return nil
}

// linesFromFile returns an iterator over the non-blank lines of a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}, nil
}

func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// seed grants userID membership of tenantID and ingests the source lines as
// documents of linesPerDoc lines each. It returns the number of documents.
func seed(ctx context.Context, db *lumina.Database, tenantID, userID string, source iter.Seq[string], linesPerDoc int) (int, error) {
	if linesPerDoc <= 0 {
		return 0, fmt.Errorf("lines-per-doc must be greater than 0")
	}

	err := db.Memberships().AddMembership(ctx, &core.Membership{
		TenantID: tenantID,
		UserID:   userID,
		Role:     core.MemberRoleAdmin,
	})
	if err != nil {
		return 0, err
	}

	worker, err := db.NewWorker()
	if err != nil {
		return 0, err
	}

	count := 0
	ingest := func(lines []string) error {
		count++
		doc, err := db.Documents().CreateDocument(ctx, &core.Document{
			ID:       core.NewID(),
			TenantID: tenantID,
			Title:    fmt.Sprintf("sample-%03d.txt", count),
			MimeType: "text/plain",
		})
		if err != nil {
			return err
		}
		return worker.Process(ctx, queue.NewIngestionJob(tenantID, doc.ID, []byte(strings.Join(lines, "\n"))))
	}

	batch := make([]string, 0, linesPerDoc)
	for line := range source {
		batch = append(batch, line)
		if len(batch) == linesPerDoc {
			if err := ingest(batch); err != nil {
				return count, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := ingest(batch); err != nil {
			return count, err
		}
	}
	return count, nil
}
