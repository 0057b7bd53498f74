package metrics

import (
	"fmt"
	"net"
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairdeck/fairdeck/log"
)

var (
	// PrivateMetrics about the internal world (go process, private stuff)
	PrivateMetrics = prometheus.NewRegistry()

	// CeremonySealed counts ceremonies that produced a final seed.
	CeremonySealed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ceremony_sealed_total",
		Help: "Number of ceremonies that produced a final seed",
	})
	// CeremonyAborted counts seed generations that aborted, by reason.
	CeremonyAborted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ceremony_aborted_total",
		Help: "Number of aborted seed generations",
	}, []string{"reason"})
	// RevealMismatches counts reveals that did not hash to their commitment.
	RevealMismatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reveal_mismatch_total",
		Help: "Number of reveals rejected for not matching their commitment",
	})
	// TranscriptsArchived counts sealed transcripts written to the archive.
	TranscriptsArchived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transcripts_archived_total",
		Help: "Number of transcripts archived",
	})
	// CheckpointTamper counts checkpoint verifications that found divergence.
	CheckpointTamper = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkpoint_tamper_total",
		Help: "Number of checkpoint verifications that detected tampering",
	})

	metricsBound = false
)

func bindMetrics() {
	if metricsBound {
		return
	}
	metricsBound = true

	// The private go-level metrics live in private.
	PrivateMetrics.Register(prometheus.NewGoCollector())
	PrivateMetrics.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	fairness := []prometheus.Collector{
		CeremonySealed,
		CeremonyAborted,
		RevealMismatches,
		TranscriptsArchived,
		CheckpointTamper,
	}
	for _, c := range fairness {
		PrivateMetrics.Register(c)
	}
}

// Start starts a prometheus metrics server with debug endpoints.
func Start(metricsBind string, pprof http.Handler) net.Listener {
	log.DefaultLogger().Debugw("", "metrics", "private listener started", "at", metricsBind)
	bindMetrics()

	l, err := net.Listen("tcp", metricsBind)
	if err != nil {
		log.DefaultLogger().Warnw("", "metrics", "listen failed", "err", err)
		return nil
	}
	s := http.Server{Addr: l.Addr().String()}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(PrivateMetrics, promhttp.HandlerOpts{Registry: PrivateMetrics}))

	if pprof != nil {
		mux.Handle("/debug/pprof/", pprof)
	}

	mux.HandleFunc("/debug/gc", func(w http.ResponseWriter, req *http.Request) {
		runtime.GC()
		fmt.Fprintf(w, "GC run complete")
	})
	s.Handler = mux
	go func() {
		log.DefaultLogger().Warnw("", "metrics", "listen finished", "err", s.Serve(l))
	}()
	return l
}
