package metrics

import "github.com/prometheus/client_golang/prometheus"

// Key constants are exported primarily for documentation reasons. Typically,
// they will not be used programmatically outside of defining the collectors.

// Keys for sharesync metrics.
const (
	CleanupOutcomesTotalKey         = "sharesync_cleanup_outcomes_total"
	CleanupFailuresTotalKey         = "sharesync_cleanup_failures_total"
	FanoutRecipientsKey             = "sharesync_fanout_recipients"
	OrphanSharesRemovedTotalKey     = "sharesync_orphan_shares_removed_total"
	PendingDeletionsDroppedTotalKey = "sharesync_pending_deletions_dropped_total"
	SharesRemovedTotalKey           = "sharesync_shares_removed_total"
)

// Collectors for sharesync metrics.
var (
	CleanupOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: CleanupOutcomesTotalKey,
		Help: "Cumulative number of post-delete cleanups, by outcome.",
	}, []string{"outcome"})
	CleanupFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: CleanupFailuresTotalKey,
		Help: "Cumulative number of post-delete cleanups that failed to delete shares.",
	})
	FanoutRecipients = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    FanoutRecipientsKey,
		Help:    "Number of users reached by a resolved reshare fan-out.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	OrphanSharesRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: OrphanSharesRemovedTotalKey,
		Help: "Cumulative number of orphan shares removed by repair sweeps.",
	})
	PendingDeletionsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: PendingDeletionsDroppedTotalKey,
		Help: "Cumulative number of pending deletions evicted before their post-delete event arrived.",
	})
	SharesRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: SharesRemovedTotalKey,
		Help: "Cumulative number of shares removed after their file was deleted.",
	})
)

func SharesyncCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		CleanupOutcomesTotal,
		CleanupFailuresTotal,
		FanoutRecipients,
		OrphanSharesRemovedTotal,
		PendingDeletionsDroppedTotal,
		SharesRemovedTotal,
	}
}

// WriteTextfile writes the current value of every sharesync collector to path
// in the node_exporter textfile format.
func WriteTextfile(path string) error {
	registry := prometheus.NewRegistry()
	for _, c := range SharesyncCollectors() {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return prometheus.WriteToTextfile(path, registry)
}
