package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"time"

	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	statementRegex = regexp.MustCompile(`^\s*(\w+)`)
	dbOpLatency    *prometheus.HistogramVec
	dbOpTotal      *prometheus.CounterVec
	dbOpErrors     *prometheus.CounterVec
)

// metricInterceptor records latency and error counts for every statement sent to postgres.
type metricInterceptor struct {
	sqlmw.NullInterceptor
}

func init() {
	dbOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "db_op_duration_milliseconds",
		Help:      "Time spent on a database operation",
		Subsystem: "counselpro",
		Buckets:   []float64{5, 25, 100, 300, 1000, 5000},
	},
		[]string{"op", "statement"},
	)
	dbOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "db_op_total",
		Help:      "Number of database operations",
		Subsystem: "counselpro",
	},
		[]string{"op"},
	)
	dbOpErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "db_op_errors_total",
		Help:      "Number of failed database operations",
		Subsystem: "counselpro",
	},
		[]string{"op"},
	)

	prometheus.MustRegister(dbOpLatency, dbOpTotal, dbOpErrors)
}

func (mi *metricInterceptor) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	start := time.Now()
	tx, err := conn.BeginTx(ctx, opts)
	mi.measure("begin", "begin", start, err)
	return ctx, tx, err
}

func (mi *metricInterceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, query, args)
	mi.measure("exec", statementOf(query), start, err)
	return res, err
}

func (mi *metricInterceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, query, args)
	mi.measure("query", statementOf(query), start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) TxCommit(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Commit()
	mi.measure("commit", "commit", start, err)
	return err
}

func (mi *metricInterceptor) TxRollback(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Rollback()
	mi.measure("rollback", "rollback", start, err)
	return err
}

func (mi *metricInterceptor) measure(op, statement string, start time.Time, err error) {
	dbOpTotal.With(prometheus.Labels{"op": op}).Inc()
	if err != nil && err != driver.ErrSkip {
		dbOpErrors.With(prometheus.Labels{"op": op}).Inc()
	}
	dbOpLatency.With(prometheus.Labels{"op": op, "statement": statement}).
		Observe(float64(time.Since(start).Milliseconds()))
}

func statementOf(query string) string {
	matches := statementRegex.FindStringSubmatch(query)
	if len(matches) < 2 {
		return "unknown"
	}
	return strings.ToLower(matches[1])
}
