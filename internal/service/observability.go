package service

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/oncepay/oncepay/internal/pkg/logger"
)

// LifecycleMetricsSnapshot is a process-local snapshot of the lifecycle
// counters, served on the metrics route.
type LifecycleMetricsSnapshot struct {
	IssuedTotal           uint64 `json:"issued_total"`
	ClaimWonTotal         uint64 `json:"claim_won_total"`
	ClaimLostTotal        uint64 `json:"claim_lost_total"`
	CompletedTotal        uint64 `json:"completed_total"`
	FailedTotal           uint64 `json:"failed_total"`
	ReplayTotal           uint64 `json:"replay_total"`
	WaitTimedOutTotal     uint64 `json:"wait_timed_out_total"`
	SweptTotal            uint64 `json:"swept_total"`
	StoreUnavailableTotal uint64 `json:"store_unavailable_total"`
}

type lifecycleMetrics struct {
	issuedTotal           atomic.Uint64
	claimWonTotal         atomic.Uint64
	claimLostTotal        atomic.Uint64
	completedTotal        atomic.Uint64
	failedTotal           atomic.Uint64
	replayTotal           atomic.Uint64
	waitTimedOutTotal     atomic.Uint64
	sweptTotal            atomic.Uint64
	storeUnavailableTotal atomic.Uint64
}

var defaultLifecycleMetrics lifecycleMetrics

func GetLifecycleMetricsSnapshot() LifecycleMetricsSnapshot {
	return LifecycleMetricsSnapshot{
		IssuedTotal:           defaultLifecycleMetrics.issuedTotal.Load(),
		ClaimWonTotal:         defaultLifecycleMetrics.claimWonTotal.Load(),
		ClaimLostTotal:        defaultLifecycleMetrics.claimLostTotal.Load(),
		CompletedTotal:        defaultLifecycleMetrics.completedTotal.Load(),
		FailedTotal:           defaultLifecycleMetrics.failedTotal.Load(),
		ReplayTotal:           defaultLifecycleMetrics.replayTotal.Load(),
		WaitTimedOutTotal:     defaultLifecycleMetrics.waitTimedOutTotal.Load(),
		SweptTotal:            defaultLifecycleMetrics.sweptTotal.Load(),
		StoreUnavailableTotal: defaultLifecycleMetrics.storeUnavailableTotal.Load(),
	}
}

func recordIssued()       { defaultLifecycleMetrics.issuedTotal.Add(1) }
func recordClaimWon()     { defaultLifecycleMetrics.claimWonTotal.Add(1) }
func recordClaimLost()    { defaultLifecycleMetrics.claimLostTotal.Add(1) }
func recordCompleted()    { defaultLifecycleMetrics.completedTotal.Add(1) }
func recordFailed()       { defaultLifecycleMetrics.failedTotal.Add(1) }
func recordReplay()       { defaultLifecycleMetrics.replayTotal.Add(1) }
func recordWaitTimedOut() { defaultLifecycleMetrics.waitTimedOutTotal.Add(1) }

func recordSwept(count int64) {
	if count > 0 {
		defaultLifecycleMetrics.sweptTotal.Add(uint64(count))
	}
}

func recordStoreUnavailable(operation string) {
	defaultLifecycleMetrics.storeUnavailableTotal.Add(1)
	logger.Printf("service.idempotency", "[LifecycleMetric] name=store_unavailable_total operation=%s value=1", safeAuditField(operation))
}

func logLifecycleAudit(key, stateTransition string, attrs map[string]string) {
	var b strings.Builder
	b.WriteString("[LifecycleAudit]")
	b.WriteString(" key=")
	b.WriteString(safeAuditField(key))
	b.WriteString(" state_transition=")
	b.WriteString(safeAuditField(stateTransition))
	appendSortedAttrs(&b, attrs)
	logger.Printf("service.idempotency", "%s", b.String())
}

func appendSortedAttrs(builder *strings.Builder, attrs map[string]string) {
	if len(attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		builder.WriteByte(' ')
		builder.WriteString(k)
		builder.WriteByte('=')
		builder.WriteString(safeAuditField(attrs[k]))
	}
}

func safeAuditField(v string) string {
	value := strings.TrimSpace(v)
	if value == "" {
		return "-"
	}
	// Audit lines are key=value; collapse whitespace so parsing stays trivial.
	value = strings.ReplaceAll(value, "\n", "_")
	value = strings.ReplaceAll(value, "\r", "_")
	value = strings.ReplaceAll(value, "\t", "_")
	value = strings.ReplaceAll(value, " ", "_")
	return value
}

func resetLifecycleMetricsForTest() {
	defaultLifecycleMetrics.issuedTotal.Store(0)
	defaultLifecycleMetrics.claimWonTotal.Store(0)
	defaultLifecycleMetrics.claimLostTotal.Store(0)
	defaultLifecycleMetrics.completedTotal.Store(0)
	defaultLifecycleMetrics.failedTotal.Store(0)
	defaultLifecycleMetrics.replayTotal.Store(0)
	defaultLifecycleMetrics.waitTimedOutTotal.Store(0)
	defaultLifecycleMetrics.sweptTotal.Store(0)
	defaultLifecycleMetrics.storeUnavailableTotal.Store(0)
}
