package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"donationledger/internal/domain"
	"donationledger/internal/ledger"
	"donationledger/internal/store/memory"
)

func newTestLedger() *ledger.Ledger {
	clock := func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return ledger.New(memory.New(memory.WithClock(clock)), ledger.WithClock(clock))
}

func run(t *testing.T, l *ledger.Ledger, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out, func(context.Context) (*ledger.Ledger, error) { return l, nil })
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTotalsCommand(t *testing.T) {
	l := newTestLedger()
	l.CreateDailyTotal(context.Background(), domain.NewDailyTotal{Date: "2024-03-10", StartingValue: 30})

	out, err := run(t, l, "totals")
	if err != nil {
		t.Fatalf("totals error: %v", err)
	}
	var totals domain.Totals
	if err := json.Unmarshal([]byte(out), &totals); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if totals.TotalToday != 30 || totals.StatusToday != "open" {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestExportImportCommands(t *testing.T) {
	ctx := context.Background()
	src := newTestLedger()
	src.CreateDonation(ctx, domain.NewDonation{Amount: 12})
	path := filepath.Join(t.TempDir(), "snap.json")

	if _, err := run(t, src, "export", "--out", path); err != nil {
		t.Fatalf("export error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	dst := newTestLedger()
	if _, err := run(t, dst, "import", path); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("import without --yes: err = %v", err)
	}
	out, err := run(t, dst, "import", "--yes", path)
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if !strings.Contains(out, "imported 1 donations") {
		t.Fatalf("unexpected output %q", out)
	}
	got, _ := dst.GetDonations(ctx)
	if len(got) != 1 || got[0].Amount != 12 {
		t.Fatalf("unexpected donations: %#v", got)
	}
}

func TestClearCommand(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	l.CreateDonation(ctx, domain.NewDonation{Amount: 1})
	l.CreateDailyTotal(ctx, domain.NewDailyTotal{Date: "2024-03-10", StartingValue: 1})

	if _, err := run(t, l, "clear"); err == nil {
		t.Fatal("clear without --yes succeeded")
	}
	if _, err := run(t, l, "clear", "--yes", "--donations-only"); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	stats, _ := l.Stats(ctx)
	if stats != (domain.Stats{DailyTotals: 1}) {
		t.Fatalf("stats after donations-only clear: %+v", stats)
	}
	if _, err := run(t, l, "clear", "--yes"); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	stats, _ = l.Stats(ctx)
	if stats != (domain.Stats{}) {
		t.Fatalf("stats after clear: %+v", stats)
	}
}

func TestBackendCommand(t *testing.T) {
	out, err := run(t, newTestLedger(), "backend")
	if err != nil {
		t.Fatalf("backend error: %v", err)
	}
	if !strings.Contains(out, `"backend": "memory"`) || !strings.Contains(out, `"connected": true`) {
		t.Fatalf("unexpected output %q", out)
	}
}
