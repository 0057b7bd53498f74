package metrics

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/fairdeck/fairdeck/metrics/pprof"
)

func TestMetricsEndpoint(t *testing.T) {
	l := Start("127.0.0.1:0", nil)
	if l == nil {
		t.Fatal("metrics listener did not start")
	}
	defer l.Close()

	CeremonySealed.Inc()
	CeremonyAborted.WithLabelValues("missing_reveals").Inc()

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", l.Addr().String()))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatal("req to metrics should succeed.")
	}
	_ = resp.Body.Close()
}

func TestPprofEndpoint(t *testing.T) {
	l := Start("127.0.0.1:0", pprof.WithProfile())
	if l == nil {
		t.Fatal("metrics listener did not start")
	}
	defer l.Close()

	// The index and every sub-endpoint must route through the /debug/pprof/
	// mount. The profile endpoint is left out because it blocks for the
	// duration of a CPU profile.
	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/symbol"} {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", l.Addr().String(), path))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("req to %s should succeed, got %d", path, resp.StatusCode)
		}
		_ = resp.Body.Close()
	}
}
