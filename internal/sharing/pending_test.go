package sharing_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"sharesync/internal/metrics"
	"sharesync/internal/sharing"
	"sharesync/internal/testutil"
)

func newTestPending(capacity int) (*sharing.PendingDeletions, *testutil.RecordingLogger, *testutil.StubClock) {
	logger := testutil.NewRecordingLogger()
	clock := testutil.FixedClock()
	return sharing.NewPendingDeletions(capacity, logger, clock, testutil.NewStubIDGenerator()), logger, clock
}

func TestPendingDeletions_RecordTake(t *testing.T) {
	t.Parallel()
	p, _, _ := newTestPending(8)

	entry := p.Record("/alice/files/report.pdf", 42)
	if entry.Token != "token-1" {
		t.Errorf("Token = %q, want token-1", entry.Token)
	}
	if !entry.CreatedAt.Equal(testutil.ShareTime) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, testutil.ShareTime)
	}

	got, err := p.Take("/alice/files/report.pdf")
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if got != entry {
		t.Errorf("Take() = %+v, want %+v", got, entry)
	}

	// Take leaves the entry in place until it is evicted.
	if p.Len() != 1 {
		t.Errorf("Len() after Take = %d, want 1", p.Len())
	}
	p.Evict("/alice/files/report.pdf")
	if p.Len() != 0 {
		t.Errorf("Len() after Evict = %d, want 0", p.Len())
	}
}

func TestPendingDeletions_TakeMissing(t *testing.T) {
	t.Parallel()
	p, _, _ := newTestPending(8)

	_, err := p.Take("/nobody")
	if !errors.Is(err, sharing.ErrNotFound) {
		t.Errorf("Take() error = %v, want ErrNotFound", err)
	}

	// Evicting a missing path is a no-op.
	p.Evict("/nobody")
}

func TestPendingDeletions_Overwrite(t *testing.T) {
	t.Parallel()
	p, logger, _ := newTestPending(8)

	p.Record("/a", 1)
	second := p.Record("/a", 2)

	got, err := p.Take("/a")
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if got.FileID != 2 || got.Token != second.Token {
		t.Errorf("Take() = %+v, want the second entry %+v", got, second)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
	if !logger.Contains("WARN", "overwriting pending deletion") {
		t.Errorf("expected overwrite warning, got:\n%s", logger)
	}
}

func TestPendingDeletions_CapacityEviction(t *testing.T) {
	p, logger, clock := newTestPending(3)
	before := promtest.ToFloat64(metrics.PendingDeletionsDroppedTotal)

	for i := 1; i <= 3; i++ {
		p.Record(fmt.Sprintf("/f%d", i), int64(i))
		clock.Advance(time.Second)
	}
	// Refreshing /f1 is an overwrite, not an eviction.
	p.Record("/f1", 1)
	if p.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", p.Len())
	}

	p.Record("/f4", 4)

	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
	if _, err := p.Take("/f2"); !errors.Is(err, sharing.ErrNotFound) {
		t.Errorf("oldest entry /f2 still present, err = %v", err)
	}
	for _, path := range []string{"/f1", "/f3", "/f4"} {
		if _, err := p.Take(path); err != nil {
			t.Errorf("Take(%s) error = %v", path, err)
		}
	}
	if !logger.Contains("WARN", "dropping pending deletion") {
		t.Errorf("expected drop warning, got:\n%s", logger)
	}
	if got := promtest.ToFloat64(metrics.PendingDeletionsDroppedTotal) - before; got != 1 {
		t.Errorf("dropped counter delta = %v, want 1", got)
	}
}

func TestPendingDeletions_DefaultCapacity(t *testing.T) {
	t.Parallel()
	p := sharing.NewPendingDeletions(0, nil, nil, nil)

	for i := 0; i < sharing.DefaultPendingCapacity+10; i++ {
		p.Record(fmt.Sprintf("/f%d", i), int64(i))
	}
	if p.Len() != sharing.DefaultPendingCapacity {
		t.Errorf("Len() = %d, want %d", p.Len(), sharing.DefaultPendingCapacity)
	}
}

func TestPendingDeletions_TokensAreDistinct(t *testing.T) {
	t.Parallel()
	idgen := testutil.NewStubIDGenerator()
	p := sharing.NewPendingDeletions(8, nil, testutil.FixedClock(), idgen)

	a := p.Record("/a", 1)
	b := p.Record("/a", 1)
	if a.Token == b.Token {
		t.Errorf("re-recording /a reused token %q", a.Token)
	}
	if issued := idgen.Issued(); len(issued) != 2 || issued[1] != b.Token {
		t.Errorf("issued tokens = %v, want two ending in %q", issued, b.Token)
	}
}

func TestPendingDeletions_ConcurrentRecordTakeEvict(t *testing.T) {
	t.Parallel()
	const workers = 16
	const rounds = 50
	p, _, _ := newTestPending(workers*rounds + 1)

	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds*2)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				paths := []string{
					fmt.Sprintf("/w%d/files/%d", w, i),
					fmt.Sprintf("/shared/files/%d", i%4),
				}
				for _, path := range paths {
					entry := p.Record(path, int64(w*rounds+i))
					got, err := p.Take(path)
					switch {
					case errors.Is(err, sharing.ErrNotFound):
						// Another worker evicted the shared path first.
					case err != nil:
						errs <- err
					case got.Path != path:
						errs <- fmt.Errorf("Take(%q).Path = %q", path, got.Path)
					case path == paths[0] && got != entry:
						errs <- fmt.Errorf("Take(%q) = %+v, want %+v", path, got, entry)
					}
					p.Evict(path)
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if n := p.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}
